// File: iotransport/dial.go
// Package iotransport is the default api.SecureStreamProvider: plain TCP or
// TLS over net.Dial, kept as the in-process default so a host application
// can supply its own provider instead (spec.md §9's runtime-strategy Open
// Question) without the protocol engine depending on net or crypto/tls
// directly.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package iotransport

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/momentics/wsclient/api"
)

// Default is the stock api.SecureStreamProvider: net.Dialer for plain TCP,
// tls.Client for wss://. The connect timeout is applied by the caller via
// ctx, so the TLS handshake is bounded by the same deadline as the dial.
type Default struct{}

// NewDefault returns the standard-library-backed provider.
func NewDefault() *Default {
	return &Default{}
}

// Dial implements api.SecureStreamProvider.
func (d *Default) Dial(ctx context.Context, network, addr string, secure bool, tlsOpts *api.TLSOptions) (api.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	applyTCPOptions(conn)

	if !secure {
		return conn, nil
	}

	cfg := tlsOpts.TLSConfig()
	if cfg.ServerName == "" {
		host, _, splitErr := net.SplitHostPort(addr)
		if splitErr == nil {
			cfg.ServerName = host
		}
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

func applyTCPOptions(conn net.Conn) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		setLinuxSockOpts(tcpConn)
	}
}
