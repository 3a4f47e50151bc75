// File: api/transport.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Defines the secure-stream provider contract: the engine treats transport
// connect and TLS entirely as an external collaborator. Core protocol code
// only ever sees the Conn duplex-stream interface.

package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"time"
)

// Conn is the duplex byte stream the protocol engine reads frames from and
// writes frames to. *net.TCPConn and *tls.Conn both satisfy it.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// TLSOptions mirrors the configurable subset of crypto/tls.Config the
// connection exposes to callers, per §6.
type TLSOptions struct {
	RootCAs            *x509.CertPool
	Certificates       []tls.Certificate
	ServerName         string
	InsecureSkipVerify bool
	CipherSuites       []uint16
}

func (o *TLSOptions) tlsConfig() *tls.Config {
	if o == nil {
		return &tls.Config{}
	}
	return &tls.Config{
		RootCAs:            o.RootCAs,
		Certificates:       o.Certificates,
		ServerName:         o.ServerName,
		InsecureSkipVerify: o.InsecureSkipVerify,
		CipherSuites:       o.CipherSuites,
	}
}

// TLSConfig exposes the equivalent crypto/tls.Config for providers that dial
// through the standard library.
func (o *TLSOptions) TLSConfig() *tls.Config { return o.tlsConfig() }

// SecureStreamProvider resolves a host:port to a duplex Conn, optionally
// under TLS. It is the runtime strategy the Open Questions in spec.md §9
// ask for in place of a compile-time TLS/non-TLS switch: the host
// application may supply its own provider (e.g. to route through a proxy or
// a test harness) instead of the default in iotransport.
type SecureStreamProvider interface {
	Dial(ctx context.Context, network, addr string, secure bool, tlsOpts *TLSOptions) (Conn, error)
}
