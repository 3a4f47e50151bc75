// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame Parser (component C): pulls complete frames out of a growable byte
// buffer fed by the transport. Grounded on the teacher's
// protocol/frame_codec.go header-decode layout, generalized from "decode one
// already-complete []byte" to "peek into an accumulating buffer and only
// consume once a full frame is present", the discipline spec.md §4.C
// requires so that `Feed` can be called with arbitrarily small transport
// reads without losing frames.

package protocol

import (
	"encoding/binary"
	"fmt"
)

// Frame is one parsed RFC 6455 frame annotated with its header bits. A
// server never legally sends a masked frame (Next rejects one as a
// protocol error), so a parsed Frame's payload is always already unmasked.
type Frame struct {
	Fin     bool
	Rsv1    bool
	Rsv2    bool
	Rsv3    bool
	Opcode  byte
	Payload []byte
}

// ProtocolError is returned by the parser and assembler for any condition
// spec.md requires to terminate the connection with a specific WebSocket
// close code (1002 or 1007).
type ProtocolError struct {
	Code   uint16
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error (close %d): %s", e.Code, e.Reason)
}

func newProtoErr(code uint16, reason string) *ProtocolError {
	return &ProtocolError{Code: code, Reason: reason}
}

// FrameParser accumulates bytes fed via Feed and yields complete frames via
// Next. It never consumes bytes until a full frame (header + payload) is
// present, so Feed may be called with any chunking of the underlying
// stream without affecting which frames are emitted (spec.md §8 property 1).
type FrameParser struct {
	buf              []byte
	compressionReady bool // RSV1 may legally be set only if this is true
}

// NewFrameParser constructs a parser. compressionNegotiated must reflect
// whether permessage-deflate was negotiated for this connection, since RSV1
// is only legal when it was.
func NewFrameParser(compressionNegotiated bool) *FrameParser {
	return &FrameParser{compressionReady: compressionNegotiated}
}

// Feed appends newly read transport bytes to the parser's internal buffer.
func (p *FrameParser) Feed(b []byte) {
	p.buf = append(p.buf, b...)
}

// Next attempts to parse one complete frame from the buffered bytes. ok is
// false when more bytes are needed; err is a *ProtocolError when the
// available bytes violate framing rules spec.md §4.C enumerates.
func (p *FrameParser) Next() (frame *Frame, ok bool, err error) {
	if len(p.buf) < 2 {
		return nil, false, nil
	}

	b0, b1 := p.buf[0], p.buf[1]
	fin := b0&FinBit != 0
	rsv1 := b0&Rsv1Bit != 0
	rsv2 := b0&Rsv2Bit != 0
	rsv3 := b0&Rsv3Bit != 0
	opcode := b0 & 0x0F
	masked := b1&MaskBit != 0
	lenField := b1 & 0x7F

	if masked {
		return nil, false, newProtoErr(CloseProtocolError, "masked frame from server")
	}
	if rsv2 || rsv3 {
		return nil, false, newProtoErr(CloseProtocolError, "RSV2/RSV3 must be zero")
	}
	if rsv1 && !p.compressionReady {
		return nil, false, newProtoErr(CloseProtocolError, "RSV1 set without negotiated compression")
	}
	if isControlOpcode(opcode) {
		if !fin {
			return nil, false, newProtoErr(CloseProtocolError, "control frame fragmented")
		}
		if opcode != OpcodeClose && opcode != OpcodePing && opcode != OpcodePong {
			return nil, false, newProtoErr(CloseProtocolError, "unknown opcode")
		}
	} else if opcode != OpcodeContinuation && opcode != OpcodeText && opcode != OpcodeBinary {
		return nil, false, newProtoErr(CloseProtocolError, "unknown opcode")
	}

	offset := 2
	var payloadLen uint64
	switch lenField {
	case 126:
		if len(p.buf) < offset+2 {
			return nil, false, nil
		}
		payloadLen = uint64(binary.BigEndian.Uint16(p.buf[offset:]))
		offset += 2
	case 127:
		if len(p.buf) < offset+8 {
			return nil, false, nil
		}
		payloadLen = binary.BigEndian.Uint64(p.buf[offset:])
		offset += 8
	default:
		payloadLen = uint64(lenField)
	}

	if isControlOpcode(opcode) && payloadLen > MaxControlPayloadLen {
		return nil, false, newProtoErr(CloseProtocolError, "control frame payload too large")
	}

	total := offset + int(payloadLen)
	if len(p.buf) < total {
		return nil, false, nil
	}

	payload := make([]byte, payloadLen)
	copy(payload, p.buf[offset:total])
	p.buf = p.buf[total:]

	return &Frame{
		Fin:    fin,
		Rsv1:   rsv1,
		Rsv2:   rsv2,
		Rsv3:   rsv3,
		Opcode: opcode,
		Payload: payload,
	}, true, nil
}

// Pending returns the number of unconsumed buffered bytes, for diagnostics.
func (p *FrameParser) Pending() int {
	return len(p.buf)
}
