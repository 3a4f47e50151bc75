// File: protocol/encoder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Frame Encoder (component E): builds outgoing client frames, always
// masked per RFC 6455 §5.3, with RSV1 set only on data frames that were
// actually compressed. Length encoding mirrors FrameParser.Next.

package protocol

import (
	"crypto/rand"
	"encoding/binary"
)

// EncodeOpts controls how a single outgoing frame is built.
type EncodeOpts struct {
	Fin        bool
	Opcode     byte
	Compressed bool // sets RSV1; only legal for data opcodes
}

// EncodeFrame masks payload with a fresh per-frame key and serializes a
// complete wire frame. Control frames (opcode >= 0x8) must carry payloads
// of at most MaxControlPayloadLen bytes and are always encoded Fin=true,
// uncompressed by the caller's construction (spec.md §4.E).
func EncodeFrame(opts EncodeOpts, payload []byte) ([]byte, error) {
	if isControlOpcode(opts.Opcode) && len(payload) > MaxControlPayloadLen {
		return nil, newProtoErr(CloseProtocolError, "control frame payload too large to send")
	}

	var b0 byte
	if opts.Fin {
		b0 |= FinBit
	}
	if opts.Compressed && isDataOpcode(opts.Opcode) {
		b0 |= Rsv1Bit
	}
	b0 |= opts.Opcode

	n := len(payload)
	var lenBytes []byte
	var lenField byte
	switch {
	case n <= 125:
		lenField = byte(n)
	case n <= 0xFFFF:
		lenField = 126
		lenBytes = make([]byte, 2)
		binary.BigEndian.PutUint16(lenBytes, uint16(n))
	default:
		lenField = 127
		lenBytes = make([]byte, 8)
		binary.BigEndian.PutUint64(lenBytes, uint64(n))
	}

	var maskKey [4]byte
	if _, err := rand.Read(maskKey[:]); err != nil {
		return nil, err
	}

	out := make([]byte, 0, 2+len(lenBytes)+4+n)
	out = append(out, b0, lenField|MaskBit)
	out = append(out, lenBytes...)
	out = append(out, maskKey[:]...)

	masked := make([]byte, n)
	for i, c := range payload {
		masked[i] = c ^ maskKey[i%4]
	}
	out = append(out, masked...)
	return out, nil
}

// EncodeClose builds a masked Close frame carrying code and reason, which
// must already have been validated (code legal, reason <= 123 bytes,
// reason valid UTF-8) by the caller.
func EncodeClose(code uint16, reason string) ([]byte, error) {
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, code)
	copy(payload[2:], reason)
	return EncodeFrame(EncodeOpts{Fin: true, Opcode: OpcodeClose}, payload)
}
