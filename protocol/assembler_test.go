package protocol

import (
	"strings"
	"testing"
)

type fakeSinks struct {
	compressionEnabled bool
	terminating        bool
	texts               []string
	binaries            [][]byte
	pings               [][]byte
	pongs               [][]byte
	closes              []struct {
		code   uint16
		reason string
	}
	protoErrors []struct {
		code uint16
		why  string
	}
}

func (f *fakeSinks) RxCompressionEnabled() bool { return f.compressionEnabled }
func (f *fakeSinks) RxIsTerminating() bool      { return f.terminating }
func (f *fakeSinks) OnRxText(data []byte)       { f.texts = append(f.texts, string(data)) }
func (f *fakeSinks) OnRxBinary(data []byte)     { f.binaries = append(f.binaries, append([]byte(nil), data...)) }
func (f *fakeSinks) OnRxPing(payload []byte)    { f.pings = append(f.pings, payload) }
func (f *fakeSinks) OnRxPong(payload []byte)    { f.pongs = append(f.pongs, payload) }
func (f *fakeSinks) OnRxClose(code uint16, reason string) {
	f.closes = append(f.closes, struct {
		code   uint16
		reason string
	}{code, reason})
}
func (f *fakeSinks) OnRxProtocolError(code uint16, why string) {
	f.protoErrors = append(f.protoErrors, struct {
		code uint16
		why  string
	}{code, why})
}

func TestAssemblerUnfragmentedText(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	wire := buildUnmaskedFrame(true, false, OpcodeText, []byte("Hello"))
	if err := a.Feed(wire); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sinks.texts) != 1 || sinks.texts[0] != "Hello" {
		t.Fatalf("expected delivered text 'Hello', got %+v", sinks.texts)
	}
}

func TestAssemblerFragmentedTextAcrossBoundaries(t *testing.T) {
	full := "Hello, 世界! " + strings.Repeat("x", 300)
	b := []byte(full)
	mid := len(b) / 2

	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)

	first := buildUnmaskedFrame(false, false, OpcodeText, b[:mid])
	last := buildUnmaskedFrame(true, false, OpcodeContinuation, b[mid:])

	if err := a.Feed(first); err != nil {
		t.Fatalf("first fragment: %v", err)
	}
	if len(sinks.texts) != 0 {
		t.Fatal("must not deliver before fin")
	}
	if err := a.Feed(last); err != nil {
		t.Fatalf("last fragment: %v", err)
	}
	if len(sinks.texts) != 1 || sinks.texts[0] != full {
		t.Fatalf("expected exact reassembled text, got %+v", sinks.texts)
	}
}

func TestAssemblerFourByteCodepointSplit22(t *testing.T) {
	s := "\U0001F600"
	b := []byte(s)
	if len(b) != 4 {
		t.Fatalf("expected 4-byte encoding, got %d", len(b))
	}
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	first := buildUnmaskedFrame(false, false, OpcodeText, b[:2])
	last := buildUnmaskedFrame(true, false, OpcodeContinuation, b[2:])
	if err := a.Feed(first); err != nil {
		t.Fatalf("first half: %v", err)
	}
	if err := a.Feed(last); err != nil {
		t.Fatalf("second half: %v", err)
	}
	if len(sinks.texts) != 1 || sinks.texts[0] != s {
		t.Fatalf("expected %q, got %+v", s, sinks.texts)
	}
}

func TestAssemblerOverlongUTF8Rejected1007(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	wire := buildUnmaskedFrame(true, false, OpcodeText, []byte{0xC0, 0xAF})
	err := a.Feed(wire)
	if err == nil {
		t.Fatal("expected error for overlong UTF-8")
	}
	if len(sinks.protoErrors) != 1 || sinks.protoErrors[0].code != CloseInvalidPayloadData {
		t.Fatalf("expected CloseInvalidPayloadData (1007), got %+v", sinks.protoErrors)
	}
}

func TestAssemblerInvalidUTF8AcrossContinuation(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	first := buildUnmaskedFrame(false, false, OpcodeText, []byte{0xCE, 0xBA, 0xE1})
	last := buildUnmaskedFrame(true, false, OpcodeContinuation, []byte{0xFF})
	if err := a.Feed(first); err != nil {
		t.Fatalf("first fragment should not error: %v", err)
	}
	if err := a.Feed(last); err == nil {
		t.Fatal("expected error for invalid UTF-8 continuation")
	}
	if len(sinks.protoErrors) != 1 || sinks.protoErrors[0].code != CloseInvalidPayloadData {
		t.Fatalf("expected 1007, got %+v", sinks.protoErrors)
	}
}

func TestAssemblerDataFrameWhileInProgressRejected(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	first := buildUnmaskedFrame(false, false, OpcodeText, []byte("partial"))
	second := buildUnmaskedFrame(true, false, OpcodeBinary, []byte("oops"))
	if err := a.Feed(first); err != nil {
		t.Fatalf("first fragment: %v", err)
	}
	if err := a.Feed(second); err == nil {
		t.Fatal("expected protocol error for new data frame mid-fragmentation")
	}
	if len(sinks.protoErrors) != 1 || sinks.protoErrors[0].code != CloseProtocolError {
		t.Fatalf("expected 1002, got %+v", sinks.protoErrors)
	}
}

func TestAssemblerContinuationWithoutStartRejected(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	wire := buildUnmaskedFrame(true, false, OpcodeContinuation, []byte("x"))
	if err := a.Feed(wire); err == nil {
		t.Fatal("expected protocol error")
	}
}

func TestAssemblerPingTriggersSink(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	wire := buildUnmaskedFrame(true, false, OpcodePing, []byte("ping-payload"))
	if err := a.Feed(wire); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sinks.pings) != 1 || string(sinks.pings[0]) != "ping-payload" {
		t.Fatalf("expected ping delivered, got %+v", sinks.pings)
	}
}

func TestAssemblerPingDuringFragmentationResumes(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	first := buildUnmaskedFrame(false, false, OpcodeBinary, []byte("AAAA"))
	ping := buildUnmaskedFrame(true, false, OpcodePing, []byte("p"))
	last := buildUnmaskedFrame(true, false, OpcodeContinuation, []byte("BBBB"))

	if err := a.Feed(first); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := a.Feed(ping); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := a.Feed(last); err != nil {
		t.Fatalf("last: %v", err)
	}
	if len(sinks.binaries) != 1 || string(sinks.binaries[0]) != "AAAABBBB" {
		t.Fatalf("expected reassembled binary AAAABBBB, got %+v", sinks.binaries)
	}
	if len(sinks.pings) != 1 {
		t.Fatalf("expected exactly one ping delivered, got %d", len(sinks.pings))
	}
}

func TestAssemblerCloseFramePayloadLength1Rejected(t *testing.T) {
	sinks := &fakeSinks{}
	a := NewAssembler(sinks, false, false)
	wire := buildUnmaskedFrame(true, false, OpcodeClose, []byte{0x03})
	if err := a.Feed(wire); err == nil {
		t.Fatal("expected protocol error for length-1 close payload")
	}
	if len(sinks.protoErrors) != 1 || sinks.protoErrors[0].code != CloseProtocolError {
		t.Fatalf("expected 1002, got %+v", sinks.protoErrors)
	}
}

func TestAssemblerCompressedTextRoundTrip(t *testing.T) {
	sinks := &fakeSinks{compressionEnabled: true}
	a := NewAssembler(sinks, true, false)
	comp, err := NewDeflateCompressor(0, false)
	if err != nil {
		t.Fatalf("compressor: %v", err)
	}
	payload, err := comp.Compress([]byte("The quick brown fox"))
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	wire := buildUnmaskedFrame(true, true, OpcodeText, payload)
	if err := a.Feed(wire); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sinks.texts) != 1 || sinks.texts[0] != "The quick brown fox" {
		t.Fatalf("expected decompressed text, got %+v", sinks.texts)
	}
}
