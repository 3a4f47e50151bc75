// File: protocol/utf8.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Incremental UTF-8 validator (component A). unicode/utf8.Valid only
// validates a complete buffer; text frames split across fragments need a
// validator that carries state between Accept calls so a multi-byte
// sequence straddling a fragment boundary is still checked correctly.
//
// The validator tracks, per RFC 3629 Table 3-7, how many continuation bytes
// remain for the sequence in progress and the legal range for the next one.
// Only the first continuation byte after a lead byte needs a restricted
// range, and that restriction alone is what rules out overlong encodings
// (C0/C1 leads are rejected outright as leads; E0/F0 restrict their first
// continuation byte's high bits), lone surrogate halves (ED restricts its
// first continuation byte to 80-9F, excluding the A0-BF that would encode
// D800-DFFF), and code points past U+10FFFF (F4 restricts its first
// continuation byte to 80-8F).

package protocol

// UTF8Validator incrementally validates a stream of UTF-8 bytes fed in
// arbitrary chunk sizes, as required for text frames that may be split
// across fragments (spec.md §4.A).
type UTF8Validator struct {
	remaining      int  // continuation bytes still expected before the sequence completes
	nextLo, nextHi byte // legal range for the next continuation byte
	bad            bool
}

// NewUTF8Validator returns a validator ready to accept the first chunk.
func NewUTF8Validator() *UTF8Validator {
	return &UTF8Validator{}
}

// Reset restores the validator to its initial state for reuse across
// messages (context-takeover-free reuse between deliveries).
func (v *UTF8Validator) Reset() {
	v.remaining = 0
	v.nextLo, v.nextHi = 0, 0
	v.bad = false
}

// Accept feeds the next chunk of bytes. It returns false the first time an
// invalid sequence completes; once false, the validator stays rejected
// until Reset.
func (v *UTF8Validator) Accept(b []byte) bool {
	if v.bad {
		return false
	}
	for _, c := range b {
		if v.remaining == 0 {
			if !v.startSequence(c) {
				v.bad = true
				return false
			}
			continue
		}
		if c < v.nextLo || c > v.nextHi {
			v.bad = true
			return false
		}
		v.remaining--
		v.nextLo, v.nextHi = 0x80, 0xBF
	}
	return true
}

// startSequence consumes a lead byte, setting up the continuation-byte
// count and the restricted range (if any) for the first continuation byte.
// It returns false for any byte that can never start a valid sequence: a
// stray continuation byte (80-BF), an overlong 2-byte lead (C0-C1), or a
// lead byte beyond the four-byte range (F5-FF).
func (v *UTF8Validator) startSequence(c byte) bool {
	switch {
	case c <= 0x7F:
		// ASCII; sequence already complete.
		return true
	case c >= 0xC2 && c <= 0xDF:
		v.remaining, v.nextLo, v.nextHi = 1, 0x80, 0xBF
	case c == 0xE0:
		v.remaining, v.nextLo, v.nextHi = 2, 0xA0, 0xBF
	case c >= 0xE1 && c <= 0xEC:
		v.remaining, v.nextLo, v.nextHi = 2, 0x80, 0xBF
	case c == 0xED:
		v.remaining, v.nextLo, v.nextHi = 2, 0x80, 0x9F
	case c >= 0xEE && c <= 0xEF:
		v.remaining, v.nextLo, v.nextHi = 2, 0x80, 0xBF
	case c == 0xF0:
		v.remaining, v.nextLo, v.nextHi = 3, 0x90, 0xBF
	case c >= 0xF1 && c <= 0xF3:
		v.remaining, v.nextLo, v.nextHi = 3, 0x80, 0xBF
	case c == 0xF4:
		v.remaining, v.nextLo, v.nextHi = 3, 0x80, 0x8F
	default:
		return false
	}
	return true
}

// IsFinalValid reports whether the stream ended on a complete, valid
// sequence (not mid-multibyte, and never having rejected).
func (v *UTF8Validator) IsFinalValid() bool {
	return !v.bad && v.remaining == 0
}

// ValidUTF8 validates a complete, non-streamed byte slice in one call.
func ValidUTF8(b []byte) bool {
	v := NewUTF8Validator()
	return v.Accept(b) && v.IsFinalValid()
}
