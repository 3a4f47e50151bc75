// File: client/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import "sync/atomic"

// State is the connection lifecycle (spec.md §3). Initial DISCONNECTED,
// terminal CLOSED; any state may jump straight to CLOSED on fatal error.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// stateBox is an atomic State cell: Connect/Close/Disconnect are called
// from application goroutines while the I/O loop goroutine reads and
// writes the same cell, so every access goes through atomic ops rather
// than the mutex guarding the callback table.
type stateBox struct {
	v atomic.Int32
}

func (b *stateBox) Load() State { return State(b.v.Load()) }

func (b *stateBox) Store(s State) { b.v.Store(int32(s)) }

func (b *stateBox) CompareAndSwap(old, new State) bool {
	return b.v.CompareAndSwap(int32(old), int32(new))
}
