// File: client/config.go
// Package client is the connection state machine (component G): handshake
// orchestration, open/close lifecycle, timers, and the public API an
// application embeds to drive a single WebSocket connection. Grounded on
// the teacher's highlevel/client.go (Options/Dial/DialWithOptions shape)
// generalized from a NUMA-aware buffer-pool client into the protocol
// engine spec.md describes.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/momentics/wsclient/api"
)

// Defaults for the optional Config fields, matching spec.md §4.G/§5.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultCloseGracePeriod = 5 * time.Second
	DefaultCompressionLevel = 6
)

// Config is the connection configuration, immutable once Connect has
// started (spec.md §3): host, port, request URI, secure flag, connect
// timeout, ping interval, custom request headers, TLS options, and the
// compression-requested flag.
type Config struct {
	Host       string
	Port       int
	Secure     bool
	RequestURI string
	Header     http.Header

	ConnectTimeout   time.Duration
	PingInterval     time.Duration
	CloseGracePeriod time.Duration

	CompressionRequested bool
	CompressionLevel     int
	NoContextTakeover    bool

	TLSOptions *api.TLSOptions

	// StreamProvider and EventLoop are the pluggable collaborators spec.md
	// §1/§9 ask for. client.New fills these in from its provider/loop
	// arguments when left nil here. iotransport.NewDefault() is the stock
	// TCP/TLS transport and internal/ioloop.New() the in-process event loop;
	// as an internal package, ioloop can be imported only by code inside this
	// module (such as this package's tests). This package itself imports
	// neither.
	StreamProvider api.SecureStreamProvider
	EventLoop      api.EventLoopProvider
}

// Addr returns the host:port string used to dial the transport.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseURL parses a ws:// or wss:// URL (spec.md §6) into a Config with
// defaults filled in. The caller still must pass a StreamProvider/EventLoop
// pair to client.New before connecting.
func ParseURL(raw string) (Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Config{}, api.NewError(api.ErrKindConfiguration, "invalid url: "+err.Error())
	}

	cfg := Config{
		Header:           make(http.Header),
		ConnectTimeout:   DefaultConnectTimeout,
		CloseGracePeriod: DefaultCloseGracePeriod,
		CompressionLevel: DefaultCompressionLevel,
	}

	switch u.Scheme {
	case "ws":
		cfg.Secure = false
		cfg.Port = 80
	case "wss":
		cfg.Secure = true
		cfg.Port = 443
	default:
		return Config{}, api.NewError(api.ErrKindConfiguration, "unsupported url scheme "+u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Config{}, api.NewError(api.ErrKindConfiguration, "url missing host")
	}
	cfg.Host = host

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, api.NewError(api.ErrKindConfiguration, "invalid url port "+p)
		}
		cfg.Port = port
	}

	requestURI := u.RequestURI()
	if requestURI == "" {
		requestURI = "/"
	}
	cfg.RequestURI = requestURI

	return cfg, nil
}
