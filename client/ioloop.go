// File: client/ioloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// connRunner is the single I/O-thread owner spec.md §5 describes: one
// goroutine running inside the configured api.EventLoopProvider drives
// dial, handshake, and the open-connection loop, and is the only goroutine
// that touches the assembler, the compressor, and the close/grace timers.
// A second goroutine (readLoop) does the blocking net.Conn.Read syscalls
// and hands raw bytes to the owner over a channel — generalizing the
// teacher's split recvLoop/sendLoop (protocol/connection.go) into a single
// state owner fed by one reader, rather than two goroutines each mutating
// connection state.

package client

import (
	"bufio"
	"context"
	"time"

	"github.com/momentics/wsclient/api"
	"github.com/momentics/wsclient/protocol"
	"github.com/momentics/wsclient/queue"
)

type connRunner struct {
	c    *Client
	conn api.Conn

	assembler  *protocol.Assembler
	compressor *protocol.DeflateCompressor
	ext        *protocol.NegotiatedExtensions
	bufPool    api.BufferPool

	readCh    chan []byte
	readErrCh chan error
	done      chan struct{}

	closeFrameSent bool
	closeCode      uint16
	closeReason    string

	graceTimer *time.Timer
	graceC     <-chan time.Time
}

func newConnRunner(c *Client) *connRunner {
	return &connRunner{
		readCh:    make(chan []byte, 1),
		readErrCh: make(chan error, 1),
		done:      make(chan struct{}),
		bufPool:   api.NewSyncBufferPool(),
		c:         c,
	}
}

func (r *connRunner) run() {
	r.c.loop.Run(r.ioLoopBody)
}

func (r *connRunner) ioLoopBody(wake <-chan struct{}, stop <-chan struct{}) {
	defer close(r.done)

	conn, br, ext, ok := r.handshake(stop)
	if !ok {
		return
	}
	r.conn = conn
	r.ext = ext
	r.assembler = protocol.NewAssembler(r, ext.CompressionEnabled, ext.ServerNoContextTakeover)
	if ext.CompressionEnabled {
		if comp, err := protocol.NewDeflateCompressor(r.c.cfg.CompressionLevel, ext.ClientNoContextTakeover); err == nil {
			r.compressor = comp
		}
	}

	r.c.state.Store(StateOpen)
	r.fireOpen()

	go r.readLoop(br)

	var pingC <-chan time.Time
	if r.c.cfg.PingInterval > 0 {
		ticker := time.NewTicker(r.c.cfg.PingInterval)
		defer ticker.Stop()
		pingC = ticker.C
	}
	defer func() {
		if r.graceTimer != nil {
			r.graceTimer.Stop()
		}
	}()

	r.drainSendQueue()

	for r.c.state.Load() != StateClosed {
		select {
		case <-stop:
			r.abort()
		case <-wake:
			r.drainSendQueue()
		case data, ok := <-r.readCh:
			if ok {
				_ = r.assembler.Feed(data)
			}
		case err := <-r.readErrCh:
			r.handleTransportError(err)
		case <-pingC:
			r.sendPing()
		case <-r.graceC:
			r.finishClosed(r.closeCode, r.closeReason)
		}
	}

	_ = r.conn.Close()
}

// handshake dials and performs the HTTP/1.1 Upgrade exchange (spec.md
// §4.G steps 1-4). ok is false if the caller should return immediately
// (dial/handshake failure already reported, or a local stop arrived first).
func (r *connRunner) handshake(stop <-chan struct{}) (api.Conn, *bufio.Reader, *protocol.NegotiatedExtensions, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.c.cfg.ConnectTimeout)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	conn, err := r.c.cfg.StreamProvider.Dial(ctx, "tcp", r.c.cfg.Addr(), r.c.cfg.Secure, r.c.cfg.TLSOptions)
	if err != nil {
		r.finishWithError(api.NewError(api.ErrKindNetwork, "dial failed").WithContext("cause", err.Error()))
		return nil, nil, nil, false
	}

	r.c.state.Store(StateHandshaking)
	deadline := time.Now().Add(r.c.cfg.ConnectTimeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	req, key, err := protocol.BuildRequest(r.c.cfg.Host, r.c.cfg.RequestURI, r.c.cfg.Header, r.c.cfg.CompressionRequested, r.c.cfg.NoContextTakeover)
	if err != nil {
		r.finishWithError(api.NewError(api.ErrKindHandshake, err.Error()))
		_ = conn.Close()
		return nil, nil, nil, false
	}
	if err := req.Write(conn); err != nil {
		r.finishWithError(api.NewError(api.ErrKindHandshake, "writing handshake request: "+err.Error()))
		_ = conn.Close()
		return nil, nil, nil, false
	}

	// br persists past the handshake: the server's first frame bytes may
	// already be buffered behind the HTTP response in the same read.
	br := bufio.NewReader(conn)
	ext, err := protocol.ParseResponse(br, req, key)
	if err != nil {
		r.finishWithError(api.NewError(api.ErrKindHandshake, err.Error()))
		_ = conn.Close()
		return nil, nil, nil, false
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})
	return conn, br, ext, true
}

// readScratchSize is the scratch buffer readLoop draws from r.bufPool; each
// read is copied out into a freshly allocated chunk before the scratch
// buffer is reused for the next Read, so the pool never hands out a buffer
// still referenced by an in-flight readCh item.
const readScratchSize = 4096

func (r *connRunner) readLoop(br *bufio.Reader) {
	scratch := r.bufPool.Get(readScratchSize)
	defer scratch.Release()
	buf := scratch.Bytes()
	for {
		n, err := br.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case r.readCh <- chunk:
			case <-r.done:
				return
			}
		}
		if err != nil {
			select {
			case r.readErrCh <- err:
			default:
			}
			return
		}
	}
}

func (r *connRunner) drainSendQueue() {
	for _, item := range r.c.sendQ.DrainAll() {
		if r.c.state.Load() == StateClosed {
			return
		}
		switch item.Kind {
		case queue.KindText:
			r.sendData(protocol.OpcodeText, []byte(item.Text))
		case queue.KindBinary:
			r.sendData(protocol.OpcodeBinary, item.Binary)
		case queue.KindClose:
			if !r.closeFrameSent {
				r.closeFrameSent = true
				if err := r.writeCloseFrame(item.CloseCode, item.CloseReason); err != nil {
					r.handleTransportError(err)
					return
				}
				r.closeCode, r.closeReason = item.CloseCode, item.CloseReason
				r.c.state.Store(StateClosing)
				r.armGrace()
			}
		}
	}
}

func (r *connRunner) sendData(opcode byte, payload []byte) {
	if r.c.state.Load() != StateOpen {
		return
	}
	opts := protocol.EncodeOpts{Fin: true, Opcode: opcode}
	out := payload
	if r.compressor != nil {
		if compressed, err := r.compressor.Compress(payload); err == nil {
			out = compressed
			opts.Compressed = true
		}
		// Compression failure downgrades to uncompressed per spec.md §7;
		// the connection stays open.
	}
	frame, err := protocol.EncodeFrame(opts, out)
	if err != nil {
		return
	}
	if err := r.writeRaw(frame); err != nil {
		r.handleTransportError(err)
	}
}

func (r *connRunner) sendPing() {
	if r.c.state.Load() != StateOpen {
		return
	}
	frame, err := protocol.EncodeFrame(protocol.EncodeOpts{Fin: true, Opcode: protocol.OpcodePing}, nil)
	if err != nil {
		return
	}
	if err := r.writeRaw(frame); err != nil {
		r.handleTransportError(err)
	}
}

func (r *connRunner) writeCloseFrame(code uint16, reason string) error {
	if len(reason) > protocol.MaxCloseReasonLen {
		reason = reason[:protocol.MaxCloseReasonLen]
	}
	frame, err := protocol.EncodeClose(code, reason)
	if err != nil {
		return err
	}
	return r.writeRaw(frame)
}

func (r *connRunner) writeRaw(frame []byte) error {
	_, err := r.conn.Write(frame)
	return err
}

func (r *connRunner) armGrace() {
	if r.graceTimer != nil {
		r.graceTimer.Stop()
	}
	r.graceTimer = time.NewTimer(r.c.cfg.CloseGracePeriod)
	r.graceC = r.graceTimer.C
}

func (r *connRunner) abort() {
	st := r.c.state.Load()
	if st == StateOpen || st == StateClosing {
		r.finishClosed(1000, "client disconnect")
		return
	}
	r.finishWithError(api.NewError(api.ErrKindNetwork, "disconnected before handshake completed"))
}

func (r *connRunner) handleTransportError(err error) {
	if r.c.state.Load() == StateClosing {
		r.finishClosed(r.closeCode, r.closeReason)
		return
	}
	r.finishClosed(1006, "abnormal closure")
}

func (r *connRunner) finishClosed(code uint16, reason string) {
	r.c.state.Store(StateClosed)
	r.c.closeOnce.Do(func() {
		_, _, _, onClose, _ := r.c.snapshotCallbacks()
		if onClose != nil {
			onClose(code, reason)
		}
	})
}

func (r *connRunner) finishWithError(err error) {
	r.c.state.Store(StateClosed)
	r.c.errOnce.Do(func() {
		_, _, _, _, onError := r.c.snapshotCallbacks()
		if onError != nil {
			onError(err)
		}
	})
}

func (r *connRunner) fireOpen() {
	onOpen, _, _, _, _ := r.c.snapshotCallbacks()
	if onOpen != nil {
		onOpen()
	}
}

// --- protocol.Sinks ---

func (r *connRunner) RxCompressionEnabled() bool {
	return r.ext != nil && r.ext.CompressionEnabled
}

func (r *connRunner) RxIsTerminating() bool {
	return r.c.state.Load() == StateClosed
}

func (r *connRunner) OnRxText(data []byte) {
	_, onMessage, _, _, _ := r.c.snapshotCallbacks()
	if onMessage != nil {
		onMessage(string(data))
	}
}

func (r *connRunner) OnRxBinary(data []byte) {
	_, _, onBinary, _, _ := r.c.snapshotCallbacks()
	if onBinary != nil {
		onBinary(data)
	}
}

func (r *connRunner) OnRxPing(payload []byte) {
	if r.c.state.Load() == StateClosed {
		return
	}
	frame, err := protocol.EncodeFrame(protocol.EncodeOpts{Fin: true, Opcode: protocol.OpcodePong}, payload)
	if err != nil {
		return
	}
	_ = r.writeRaw(frame)
}

func (r *connRunner) OnRxPong(payload []byte) {
	// RFC 6455 allows an unsolicited or mismatched-payload Pong; the
	// engine does not validate it against the last Ping sent.
}

func (r *connRunner) OnRxClose(code uint16, reason string) {
	if r.c.state.Load() == StateClosed {
		return
	}
	if r.closeFrameSent {
		// Our own Close was already sent; this is the peer's reply.
		r.finishClosed(r.closeCode, r.closeReason)
		return
	}
	r.closeFrameSent = true
	_ = r.writeCloseFrame(code, reason)
	r.closeCode, r.closeReason = code, reason
	r.c.state.Store(StateClosing)
	r.finishClosed(code, reason)
}

func (r *connRunner) OnRxProtocolError(code uint16, why string) {
	if r.closeFrameSent {
		return
	}
	r.closeFrameSent = true
	_ = r.writeCloseFrame(code, "")
	r.closeCode, r.closeReason = code, why
	r.c.state.Store(StateClosing)
	r.armGrace()
}
