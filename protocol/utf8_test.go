package protocol

import "testing"

func TestUTF8ValidatorValidStrings(t *testing.T) {
	cases := []string{
		"",
		"hello",
		"The quick brown fox",
		"日本語",
		"\U0001F600", // 4-byte emoji
	}
	for _, s := range cases {
		v := NewUTF8Validator()
		if !v.Accept([]byte(s)) || !v.IsFinalValid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
}

func TestUTF8ValidatorSplitAcrossChunks(t *testing.T) {
	// A single 4-byte code point split 2+2 across fragments must validate.
	s := "\U0001F600"
	b := []byte(s)
	v := NewUTF8Validator()
	if !v.Accept(b[:2]) {
		t.Fatal("first half rejected")
	}
	if v.IsFinalValid() {
		t.Fatal("validator should not be final-valid mid-sequence")
	}
	if !v.Accept(b[2:]) {
		t.Fatal("second half rejected")
	}
	if !v.IsFinalValid() {
		t.Fatal("expected final-valid after full sequence")
	}
}

func TestUTF8ValidatorOverlongRejected(t *testing.T) {
	// 0xC0 0xAF is an overlong encoding of '/' (U+002F) and must be rejected.
	v := NewUTF8Validator()
	if v.Accept([]byte{0xC0, 0xAF}) {
		t.Fatal("expected overlong encoding to be rejected")
	}
}

func TestUTF8ValidatorSurrogateRejected(t *testing.T) {
	// U+D800 encoded as 0xED 0xA0 0x80 is a lone surrogate half.
	v := NewUTF8Validator()
	if v.Accept([]byte{0xED, 0xA0, 0x80}) {
		t.Fatal("expected surrogate half to be rejected")
	}
}

func TestUTF8ValidatorAboveMaxCodepointRejected(t *testing.T) {
	// 0xF4 0x90 0x80 0x80 encodes U+110000, one past U+10FFFF.
	v := NewUTF8Validator()
	if v.Accept([]byte{0xF4, 0x90, 0x80, 0x80}) {
		t.Fatal("expected codepoint above U+10FFFF to be rejected")
	}
}

func TestUTF8ValidatorIncompleteSequenceNotFinalValid(t *testing.T) {
	v := NewUTF8Validator()
	// 0xE1 starts a 3-byte sequence that is never completed.
	if !v.Accept([]byte{0xCE, 0xBA, 0xE1}) {
		t.Fatal("partial sequence should not be rejected yet")
	}
	if v.IsFinalValid() {
		t.Fatal("expected not final-valid when ending mid-sequence")
	}
}

func TestUTF8ValidatorInvalidContinuationAcrossFragments(t *testing.T) {
	// First fragment ends mid-sequence (0xE1 incomplete); second fragment
	// supplies a byte, 0xFF, that can never be a valid continuation.
	v := NewUTF8Validator()
	if !v.Accept([]byte{0xCE, 0xBA, 0xE1}) {
		t.Fatal("first fragment should not reject yet")
	}
	if v.Accept([]byte{0xFF}) {
		t.Fatal("expected second fragment to complete an invalid sequence")
	}
}

func TestUTF8ValidatorStaysRejectedAfterFailure(t *testing.T) {
	v := NewUTF8Validator()
	v.Accept([]byte{0xC0, 0xAF})
	if v.Accept([]byte("hello")) {
		t.Fatal("validator must stay rejected until Reset")
	}
	v.Reset()
	if !v.Accept([]byte("hello")) || !v.IsFinalValid() {
		t.Fatal("expected validator to work again after Reset")
	}
}
