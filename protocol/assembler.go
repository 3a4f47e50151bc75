// File: protocol/assembler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Message Assembler (component D) plus the Sinks interface (component I)
// it delivers through. The assembler owns a FrameParser and the
// fragmentation state spec.md §3 describes, combining components A
// (UTF-8), B (deflate) and C (framing) into delivered messages, exactly the
// "receiver" pipeline spec.md §4.I calls out as unit-testable against a
// fake connection.

package protocol

// Sinks is the upward callback contract from the receive pipeline to the
// connection (spec.md §4.I). A fake implementation lets the assembler be
// tested in isolation from any real transport or state machine.
type Sinks interface {
	RxCompressionEnabled() bool
	RxIsTerminating() bool
	OnRxText(data []byte)
	OnRxBinary(data []byte)
	OnRxPing(payload []byte)
	OnRxPong(payload []byte)
	OnRxClose(code uint16, reason string)
	OnRxProtocolError(code uint16, why string)
}

// fragmentState is reset between messages (spec.md §3).
type fragmentState struct {
	inProgress bool
	opcode     byte
	compressed bool
	buffer     []byte
	utf8       *UTF8Validator
}

func (f *fragmentState) reset() {
	f.inProgress = false
	f.opcode = 0
	f.compressed = false
	f.buffer = nil
	f.utf8 = nil
}

// Assembler implements the receiver: it owns a FrameParser, the
// fragmentation state, and (when permessage-deflate is negotiated) the
// inflate context.
type Assembler struct {
	parser  *FrameParser
	sinks   Sinks
	deflate *DeflateDecompressor
	frag    fragmentState
}

// NewAssembler constructs an assembler delivering to sinks. When
// compressionNegotiated is true, an inflate context is created honoring
// serverNoContextTakeover (reset after every completed message).
func NewAssembler(sinks Sinks, compressionNegotiated, serverNoContextTakeover bool) *Assembler {
	a := &Assembler{
		parser: NewFrameParser(compressionNegotiated),
		sinks:  sinks,
	}
	if compressionNegotiated {
		a.deflate = NewDeflateDecompressor(serverNoContextTakeover)
	}
	return a
}

// Feed appends newly read transport bytes and processes every frame that
// becomes complete, delivering events through Sinks. It returns the first
// fatal error encountered (already reported via sinks.OnRxProtocolError);
// the caller must stop processing further reads after a non-nil return.
func (a *Assembler) Feed(data []byte) error {
	a.parser.Feed(data)
	for {
		if a.sinks.RxIsTerminating() {
			return nil
		}
		frame, ok, err := a.parser.Next()
		if err != nil {
			pe := err.(*ProtocolError)
			a.sinks.OnRxProtocolError(pe.Code, pe.Reason)
			return err
		}
		if !ok {
			return nil
		}
		if err := a.dispatch(frame); err != nil {
			if pe, isProto := err.(*ProtocolError); isProto {
				a.sinks.OnRxProtocolError(pe.Code, pe.Reason)
			}
			return err
		}
	}
}

func (a *Assembler) dispatch(f *Frame) error {
	switch {
	case isDataOpcode(f.Opcode):
		return a.dispatchData(f)
	case f.Opcode == OpcodeContinuation:
		return a.dispatchContinuation(f)
	case f.Opcode == OpcodeClose:
		return a.dispatchClose(f)
	case f.Opcode == OpcodePing:
		return a.dispatchPing(f)
	case f.Opcode == OpcodePong:
		a.sinks.OnRxPong(f.Payload)
		return nil
	}
	return nil
}

func (a *Assembler) dispatchData(f *Frame) error {
	if a.frag.inProgress {
		return newProtoErr(CloseProtocolError, "data frame received while another message is in progress")
	}

	if f.Fin {
		return a.deliverComplete(f.Opcode, f.Rsv1, f.Payload)
	}

	// Start fragmentation state.
	a.frag.inProgress = true
	a.frag.opcode = f.Opcode
	a.frag.compressed = f.Rsv1
	a.frag.buffer = append([]byte(nil), f.Payload...)
	if f.Opcode == OpcodeText && !f.Rsv1 {
		a.frag.utf8 = NewUTF8Validator()
		if !a.frag.utf8.Accept(f.Payload) {
			a.frag.reset()
			return newProtoErr(CloseInvalidPayloadData, "invalid UTF-8 in text fragment")
		}
	}
	return nil
}

func (a *Assembler) dispatchContinuation(f *Frame) error {
	if !a.frag.inProgress {
		return newProtoErr(CloseProtocolError, "continuation frame without a message in progress")
	}

	a.frag.buffer = append(a.frag.buffer, f.Payload...)
	if a.frag.opcode == OpcodeText && !a.frag.compressed {
		if !a.frag.utf8.Accept(f.Payload) {
			a.frag.reset()
			return newProtoErr(CloseInvalidPayloadData, "invalid UTF-8 in continuation fragment")
		}
	}

	if !f.Fin {
		return nil
	}

	opcode := a.frag.opcode
	compressed := a.frag.compressed
	buffer := a.frag.buffer
	finalValid := a.frag.opcode != OpcodeText || a.frag.compressed || a.frag.utf8.IsFinalValid()
	a.frag.reset()

	if !finalValid {
		return newProtoErr(CloseInvalidPayloadData, "invalid UTF-8: ended mid-sequence")
	}
	return a.deliverComplete(opcode, compressed, buffer)
}

// deliverComplete inflates (if compressed), validates UTF-8 for text, and
// delivers the finished message through the sinks.
func (a *Assembler) deliverComplete(opcode byte, compressed bool, payload []byte) error {
	data := payload
	if compressed {
		if a.deflate == nil {
			return newProtoErr(CloseProtocolError, "compressed frame received without negotiated permessage-deflate")
		}
		inflated, err := a.deflate.Decompress(payload)
		if err != nil {
			return newProtoErr(CloseInvalidPayloadData, "decompression failed: "+err.Error())
		}
		data = inflated
	}

	if opcode == OpcodeText {
		if !compressed {
			// Validate the whole payload. For an unfragmented Fin frame this
			// is the only check; a fragmented message was already validated
			// incrementally as it arrived and is checked again here.
			if !ValidUTF8(data) {
				return newProtoErr(CloseInvalidPayloadData, "invalid UTF-8 in text message")
			}
		} else if !ValidUTF8(data) {
			return newProtoErr(CloseInvalidPayloadData, "invalid UTF-8 in decompressed text message")
		}
		a.sinks.OnRxText(data)
		return nil
	}
	a.sinks.OnRxBinary(data)
	return nil
}

func (a *Assembler) dispatchPing(f *Frame) error {
	a.sinks.OnRxPing(f.Payload)
	return nil
}

func (a *Assembler) dispatchClose(f *Frame) error {
	code, reason, ok := ParseClosePayload(f.Payload)
	if !ok {
		return newProtoErr(CloseProtocolError, "invalid close frame payload")
	}
	a.sinks.OnRxClose(code, reason)
	return nil
}
