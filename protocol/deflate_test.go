package protocol

import "testing"

func TestDeflateRoundTrip(t *testing.T) {
	comp, err := NewDeflateCompressor(0, false)
	if err != nil {
		t.Fatalf("new compressor: %v", err)
	}
	decomp := NewDeflateDecompressor(false)

	messages := []string{
		"",
		"hello",
		"The quick brown fox jumps over the lazy dog",
		string(make([]byte, 10000)),
	}
	for _, m := range messages {
		compressed, err := comp.Compress([]byte(m))
		if err != nil {
			t.Fatalf("compress %q: %v", m, err)
		}
		got, err := decomp.Decompress(compressed)
		if err != nil {
			t.Fatalf("decompress %q: %v", m, err)
		}
		if string(got) != m {
			t.Fatalf("round trip mismatch: got %q want %q", got, m)
		}
	}
}

func TestDeflateContextTakeoverDisabled(t *testing.T) {
	comp, err := NewDeflateCompressor(0, true)
	if err != nil {
		t.Fatalf("new compressor: %v", err)
	}
	decomp := NewDeflateDecompressor(true)

	for i := 0; i < 3; i++ {
		msg := []byte("repeated message body for context takeover test")
		compressed, err := comp.Compress(msg)
		if err != nil {
			t.Fatalf("compress iteration %d: %v", i, err)
		}
		got, err := decomp.Decompress(compressed)
		if err != nil {
			t.Fatalf("decompress iteration %d: %v", i, err)
		}
		if string(got) != string(msg) {
			t.Fatalf("iteration %d: got %q want %q", i, got, msg)
		}
	}
}

// TestDeflateContextTakeoverEnabled exercises the default (context takeover
// retained) path across several messages sharing a repeated body, the case
// spec.md §4.B's compression notes call out: the compressor's window keeps
// growing across Compress calls, so the decompressor must carry the same
// trailing window forward across Decompress calls or it cannot resolve the
// server's cross-message back-references.
func TestDeflateContextTakeoverEnabled(t *testing.T) {
	comp, err := NewDeflateCompressor(0, false)
	if err != nil {
		t.Fatalf("new compressor: %v", err)
	}
	decomp := NewDeflateDecompressor(false)

	body := "the quick brown fox jumps over the lazy dog, the quick brown fox jumps over the lazy dog"
	for i := 0; i < 5; i++ {
		compressed, err := comp.Compress([]byte(body))
		if err != nil {
			t.Fatalf("compress iteration %d: %v", i, err)
		}
		got, err := decomp.Decompress(compressed)
		if err != nil {
			t.Fatalf("decompress iteration %d: %v", i, err)
		}
		if string(got) != body {
			t.Fatalf("iteration %d: got %q want %q", i, got, body)
		}
	}
}
