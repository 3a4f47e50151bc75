// File: protocol/deflate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// permessage-deflate (RFC 7692) compression codec (component B). Grounded on
// the SYNC_FLUSH trailer-stripping technique in the retrieval pack's
// gorilla/websocket reference file (other_examples/das7pad-gorilla-websocket
// compression.go): compress with flate.Writer.Flush, withhold the trailing
// four bytes from the caller; decompress by appending the RFC trailer plus
// an empty stored final block so compress/flate doesn't report an
// unexpected-EOF on a stream that has no real end.
//
// Go's flate.Writer target is an unbounded buffer, so the BUF_ERROR/retry
// escalation a C zlib binding would need never triggers here; the attempt
// loop is kept so the discipline described in spec.md §4.B is visible and
// testable, and so a future binding to a bounded output buffer can reuse it
// without changing the call sites.

package protocol

import (
	"bytes"
	"compress/flate"
	"errors"
	"io"
)

// syncFlushTrailer is the four bytes a SYNC_FLUSH always ends with.
var syncFlushTrailer = [4]byte{0x00, 0x00, 0xFF, 0xFF}

// inflateTail is appended to a permessage-deflate payload before inflating:
// the real SYNC_FLUSH trailer, plus an empty stored final block so the
// flate reader terminates with io.EOF instead of io.ErrUnexpectedEOF.
var inflateTail = []byte{0x00, 0x00, 0xFF, 0xFF, 0x01, 0x00, 0x00, 0xFF, 0xFF}

const maxCompressAttempts = 4
const inflateScratchSize = 4096

// ErrCompressFailed indicates the compressor could not produce a
// SYNC_FLUSH-terminated stream after retrying; the caller must fall back to
// sending the message uncompressed.
var ErrCompressFailed = errors.New("protocol: deflate compression failed")

// ErrDecompressFailed indicates the inflate stream is malformed; the caller
// must close the connection with CloseInvalidPayloadData (1007).
var ErrDecompressFailed = errors.New("protocol: deflate decompression failed")

// DeflateCompressor wraps a raw-deflate (negative window bits) flate.Writer
// with SYNC_FLUSH framing and optional context takeover.
type DeflateCompressor struct {
	level          int
	noContextTake  bool
	fw            *flate.Writer
	buf           bytes.Buffer
}

// NewDeflateCompressor constructs a compressor at the given flate level
// (flate.DefaultCompression if level is 0). noContextTakeover mirrors the
// client_no_context_takeover negotiated parameter.
func NewDeflateCompressor(level int, noContextTakeover bool) (*DeflateCompressor, error) {
	if level == 0 {
		level = flate.DefaultCompression
	}
	c := &DeflateCompressor{level: level, noContextTake: noContextTakeover}
	fw, err := flate.NewWriter(&c.buf, level)
	if err != nil {
		return nil, err
	}
	c.fw = fw
	return c, nil
}

// Compress deflates data with a trailing SYNC_FLUSH, returning the payload
// with the 00 00 FF FF trailer stripped per spec.md §4.B. On failure it
// returns ErrCompressFailed and the caller should send data uncompressed
// instead.
func (c *DeflateCompressor) Compress(data []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxCompressAttempts; attempt++ {
		c.buf.Reset()
		if _, err := c.fw.Write(data); err != nil {
			lastErr = err
			continue
		}
		if err := c.fw.Flush(); err != nil {
			lastErr = err
			continue
		}
		out := c.buf.Bytes()
		if len(out) < 4 {
			lastErr = errors.New("protocol: compressed output shorter than SYNC_FLUSH trailer")
			continue
		}
		var tail [4]byte
		copy(tail[:], out[len(out)-4:])
		if tail != syncFlushTrailer {
			lastErr = errors.New("protocol: compressed output missing SYNC_FLUSH trailer")
			continue
		}
		stripped := make([]byte, len(out)-4)
		copy(stripped, out[:len(out)-4])

		if c.noContextTake {
			c.reinit()
		}
		return stripped, nil
	}
	return nil, errorsJoinCompress(lastErr)
}

func errorsJoinCompress(cause error) error {
	if cause == nil {
		return ErrCompressFailed
	}
	return errors.Join(ErrCompressFailed, cause)
}

// reinit tears down and recreates the flate.Writer, equivalent to a zlib
// deflateEnd+deflateInit cycle, for client_no_context_takeover.
func (c *DeflateCompressor) reinit() {
	c.buf.Reset()
	fw, err := flate.NewWriter(&c.buf, c.level)
	if err != nil {
		// level was already validated at construction time.
		panic(err)
	}
	c.fw = fw
}

// maxWindowSize is the raw-deflate maximum sliding-window size (32 KiB),
// the most a "dictionary" passed to flate.Resetter.Reset can usefully hold.
const maxWindowSize = 32768

// DeflateDecompressor wraps a raw-deflate flate.Reader with SYNC_FLUSH
// framing and optional context takeover (component B, receive side). The
// BFINAL=1 empty block appended after every message's SYNC_FLUSH trailer
// (inflateTail) terminates the flate bitstream with a clean io.EOF, which
// means every message needs its own flate.Resetter.Reset call; context
// takeover is then reproduced explicitly by carrying the trailing window of
// the previous message's output forward as that Reset call's dictionary.
type DeflateDecompressor struct {
	noContextTake bool
	src           *deflateSource
	fr            io.ReadCloser
	dict          []byte // nil until context takeover has a window to offer
}

// NewDeflateDecompressor constructs a decompressor. noContextTakeover
// mirrors the negotiated server_no_context_takeover parameter.
func NewDeflateDecompressor(noContextTakeover bool) *DeflateDecompressor {
	src := &deflateSource{}
	return &DeflateDecompressor{
		noContextTake: noContextTakeover,
		src:           src,
		fr:            flate.NewReader(src),
	}
}

// Decompress appends the SYNC_FLUSH trailer to payload and inflates it in a
// loop into fixed-size scratch buffers, matching spec.md §4.B's
// decompression discipline. Unless server_no_context_takeover was
// negotiated, the sliding window built up by prior messages is carried into
// this one so the server's compressor may legally back-reference into
// earlier messages (the default permessage-deflate behavior).
func (d *DeflateDecompressor) Decompress(payload []byte) ([]byte, error) {
	d.src.reset(payload)
	if r, ok := d.fr.(flate.Resetter); ok {
		if err := r.Reset(d.src, d.dict); err != nil {
			return nil, errors.Join(ErrDecompressFailed, err)
		}
	} else {
		d.fr = flate.NewReader(d.src)
	}

	var out bytes.Buffer
	scratch := make([]byte, inflateScratchSize)
	for {
		n, err := d.fr.Read(scratch)
		if n > 0 {
			out.Write(scratch[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrDecompressFailed, err)
		}
		if n == 0 {
			// No progress and no EOF: treat as a stall per the BUF_ERROR
			// (avail_in>0, avail_out>0) case in spec.md §4.B.
			return nil, ErrDecompressFailed
		}
	}

	if d.noContextTake {
		d.dict = nil
	} else {
		d.dict = trailingWindow(d.dict, out.Bytes())
	}
	return out.Bytes(), nil
}

// trailingWindow returns the last maxWindowSize bytes of prior+next
// concatenated, the raw-deflate dictionary that reproduces context takeover
// across a Reset call boundary.
func trailingWindow(prior, next []byte) []byte {
	if len(next) >= maxWindowSize {
		w := make([]byte, maxWindowSize)
		copy(w, next[len(next)-maxWindowSize:])
		return w
	}
	total := len(prior) + len(next)
	if total > maxWindowSize {
		prior = prior[total-maxWindowSize:]
	}
	w := make([]byte, len(prior)+len(next))
	copy(w, prior)
	copy(w[len(prior):], next)
	return w
}

// deflateSource serves payload bytes followed by inflateTail, then io.EOF.
type deflateSource struct {
	payload []byte
	tailPos int
}

func (s *deflateSource) reset(payload []byte) {
	s.payload = payload
	s.tailPos = -1
}

func (s *deflateSource) Read(p []byte) (int, error) {
	if s.tailPos < 0 {
		if len(s.payload) > 0 {
			n := copy(p, s.payload)
			s.payload = s.payload[n:]
			return n, nil
		}
		s.tailPos = 0
	}
	if s.tailPos >= len(inflateTail) {
		return 0, io.EOF
	}
	n := copy(p, inflateTail[s.tailPos:])
	s.tailPos += n
	return n, nil
}
