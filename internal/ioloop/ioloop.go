// File: internal/ioloop/ioloop.go
// Package ioloop is the in-process default api.EventLoopProvider: a single
// goroutine's for-select loop that owns all connection state, fed by a
// wakeup channel (send-queue producers) and a stop channel (Disconnect).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This is the concurrency model spec.md §5 describes: "one dedicated I/O
// thread runs an event loop... External threads interact only via (a)
// submitting to the bounded send queue... and (b) arming a wakeup event."
// The client package's connRunner.ioLoopBody supplies the loop body (fn); this package only owns the
// channels and the Stop/join bookkeeping so alternate providers (an
// epoll/IOCP-backed reactor, as the teacher's deleted reactor package
// sketched) can satisfy the same api.EventLoopProvider contract.

package ioloop

import (
	"sync"

	"github.com/momentics/wsclient/api"
)

// Loop is the default EventLoopProvider.
type Loop struct {
	wakeCh chan struct{}
	stopCh chan struct{}
	doneCh chan struct{}

	stopOnce sync.Once
}

// New constructs a ready-to-run Loop.
func New() *Loop {
	return &Loop{
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Run invokes fn on the calling goroutine — the caller is expected to
// start Run in its own dedicated goroutine (the "I/O thread"). Run returns
// once fn returns, and Stop blocks until that has happened.
func (l *Loop) Run(fn func(wake <-chan struct{}, stop <-chan struct{})) {
	defer close(l.doneCh)
	fn(l.wakeCh, l.stopCh)
}

// NewWakeup returns a Wakeup bound to this loop.
func (l *Loop) NewWakeup() api.Wakeup {
	return &wakeup{ch: l.wakeCh}
}

// Stop signals fn (via the stop channel) to return, then blocks until Run
// has actually returned. Safe to call from any goroutine except the one
// running inside fn.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
	<-l.doneCh
}

type wakeup struct {
	ch chan struct{}
}

// Signal is a non-blocking, coalescing send: multiple Signal calls between
// wakeups collapse into a single pending wakeup, matching the "coalesced
// flush" spec.md §4.F asks of the send queue's I/O-thread consumer.
func (w *wakeup) Signal() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}
