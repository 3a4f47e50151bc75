// File: client/client.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Public API surface (spec.md §6). The Client itself is a thin,
// mutex-guarded shell around Config and a callback table; all protocol
// state lives in the connection value ioLoop owns on its single goroutine,
// matching the ownership split spec.md §5 describes between "producers
// under a mutex" and "the I/O thread."

package client

import (
	"net/http"
	"sync"
	"time"

	"github.com/momentics/wsclient/api"
	"github.com/momentics/wsclient/protocol"
	"github.com/momentics/wsclient/queue"
)

// OpenFunc is invoked once the handshake completes and the connection
// reaches OPEN.
type OpenFunc func()

// MessageFunc delivers a complete text message.
type MessageFunc func(text string)

// BinaryFunc delivers a complete binary message.
type BinaryFunc func(data []byte)

// CloseFunc is invoked exactly once, when the connection reaches CLOSED
// after having been OPEN (or after a failed close handshake); it reports
// the effective close code and reason.
type CloseFunc func(code uint16, reason string)

// ErrorFunc is invoked when a dial failure (including a TLS handshake
// failure, reported with ErrKindNetwork), an HTTP handshake failure, or a
// Disconnect before the handshake completes drives the connection to CLOSED
// without a close handshake. Configuration errors are returned by New and
// send-queue overflow by the send methods; neither reaches ErrorFunc.
type ErrorFunc func(err error)

// Client drives a single WebSocket connection. The zero value is not
// usable; construct one with New.
type Client struct {
	cfg Config

	cbMu      sync.Mutex
	onOpen    OpenFunc
	onMessage MessageFunc
	onBinary  BinaryFunc
	onClose   CloseFunc
	onError   ErrorFunc

	state stateBox

	sendQ *queue.SendQueue
	loop  api.EventLoopProvider
	wake  api.Wakeup

	closeOnce sync.Once
	errOnce   sync.Once
}

// New constructs a Client for cfg. provider and loop fill in
// cfg.StreamProvider/cfg.EventLoop when the caller left them nil, which is
// the common case for application code that just wants the stock
// TCP/TLS transport and the in-process event loop.
func New(cfg Config, provider api.SecureStreamProvider, loop api.EventLoopProvider) (*Client, error) {
	if cfg.Host == "" {
		return nil, api.NewError(api.ErrKindConfiguration, "config: host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, api.NewError(api.ErrKindConfiguration, "config: invalid port")
	}
	if cfg.RequestURI == "" {
		cfg.RequestURI = "/"
	}
	if cfg.Header == nil {
		cfg.Header = make(http.Header)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.CloseGracePeriod <= 0 {
		cfg.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = DefaultCompressionLevel
	}
	if cfg.StreamProvider == nil {
		cfg.StreamProvider = provider
	}
	if cfg.EventLoop == nil {
		cfg.EventLoop = loop
	}
	if cfg.StreamProvider == nil || cfg.EventLoop == nil {
		return nil, api.NewError(api.ErrKindConfiguration, "config: no transport/event-loop provider supplied")
	}

	c := &Client{
		cfg:  cfg,
		loop: cfg.EventLoop,
	}
	c.wake = c.loop.NewWakeup()
	c.sendQ = queue.New(c.wake.Signal)
	return c, nil
}

// --- Configuration setters (spec.md §6); safe only before Connect. ---

// SetHeader adds a custom request header sent with the handshake.
func (c *Client) SetHeader(name, value string) {
	c.cfg.Header.Add(name, value)
}

// SetPingInterval configures the keepalive ping period; zero disables it.
func (c *Client) SetPingInterval(d time.Duration) {
	c.cfg.PingInterval = d
}

// SetConnectTimeout bounds dial+handshake time.
func (c *Client) SetConnectTimeout(d time.Duration) {
	c.cfg.ConnectTimeout = d
}

// SetTLSOptions configures the TLS parameters used for wss:// connections.
func (c *Client) SetTLSOptions(opts *api.TLSOptions) {
	c.cfg.TLSOptions = opts
}

// EnableCompression turns on the permessage-deflate offer in the handshake
// request; the server may still decline it.
func (c *Client) EnableCompression(enabled bool) {
	c.cfg.CompressionRequested = enabled
}

// --- Callback setters (spec.md §6), guarded so rebinding never races a
// dispatch already in flight: dispatch always takes a snapshot under cbMu.

func (c *Client) SetOpenCallback(fn OpenFunc) {
	c.cbMu.Lock()
	c.onOpen = fn
	c.cbMu.Unlock()
}

func (c *Client) SetMessageCallback(fn MessageFunc) {
	c.cbMu.Lock()
	c.onMessage = fn
	c.cbMu.Unlock()
}

func (c *Client) SetBinaryCallback(fn BinaryFunc) {
	c.cbMu.Lock()
	c.onBinary = fn
	c.cbMu.Unlock()
}

func (c *Client) SetCloseCallback(fn CloseFunc) {
	c.cbMu.Lock()
	c.onClose = fn
	c.cbMu.Unlock()
}

func (c *Client) SetErrorCallback(fn ErrorFunc) {
	c.cbMu.Lock()
	c.onError = fn
	c.cbMu.Unlock()
}

func (c *Client) snapshotCallbacks() (OpenFunc, MessageFunc, BinaryFunc, CloseFunc, ErrorFunc) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	return c.onOpen, c.onMessage, c.onBinary, c.onClose, c.onError
}

// State reports the current connection state.
func (c *Client) State() State { return c.state.Load() }

// Connect starts the I/O thread (non-blocking per spec.md §6). The
// handshake result is reported asynchronously through the open/error
// callbacks.
func (c *Client) Connect() error {
	if !c.state.CompareAndSwap(StateDisconnected, StateConnecting) {
		return api.ErrAlreadyConnected
	}
	conn := newConnRunner(c)
	go conn.run()
	return nil
}

// SendMessage submits a text message to the send queue.
func (c *Client) SendMessage(text string) error {
	return c.submit(queue.Item{Kind: queue.KindText, Text: text})
}

// SendBinary submits a binary message to the send queue.
func (c *Client) SendBinary(data []byte) error {
	return c.submit(queue.Item{Kind: queue.KindBinary, Binary: data})
}

// Close initiates a graceful local close handshake (spec.md §4.G): a Close
// frame carrying code/reason is sent, the connection enters CLOSING, and
// the close-grace timer is armed. No further application data is queued
// for sending after this call.
func (c *Client) Close(code uint16, reason string) error {
	if !protocol.ValidCloseCode(code) {
		return api.ErrInvalidArgument
	}
	return c.submit(queue.Item{Kind: queue.KindClose, CloseCode: code, CloseReason: reason})
}

func (c *Client) submit(item queue.Item) error {
	st := c.state.Load()
	if st == StateDisconnected || st == StateClosed {
		return api.ErrNotOpen
	}
	if err := c.sendQ.Push(item); err != nil {
		return api.NewError(api.ErrKindResource, "send queue overflow").WithContext("cause", err.Error())
	}
	return nil
}

// Disconnect abruptly tears down the connection and blocks until the I/O
// thread has fully stopped (spec.md §5/§6: "synchronous... posts a stop
// request and joins the I/O thread"). Idempotent; safe to call from any
// goroutine except the I/O thread itself.
func (c *Client) Disconnect() error {
	if c.state.Load() == StateDisconnected {
		return nil
	}
	c.loop.Stop()
	return nil
}
