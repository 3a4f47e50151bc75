// File: api/eventloop.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Event-loop primitives are an external collaborator (spec.md §1): the core
// only needs a place to register a wakeup and run scheduled callbacks on a
// single owning goroutine. internal/ioloop is the in-process default;
// alternate providers (epoll/IOCP-backed reactors) implement the same
// contract without the connection caring which one is running.

package api

// Wakeup is a level-free signal: callers may call Signal any number of
// times and from any goroutine; the loop coalesces pending signals and
// guarantees at least one wakeup callback invocation follows each Signal.
type Wakeup interface {
	Signal()
}

// EventLoopProvider runs fn on its single owning goroutine until Stop is
// called or fn returns. It hands back a Wakeup the caller uses to post
// work from other goroutines (e.g. the send queue's producers).
type EventLoopProvider interface {
	// Run starts the loop, invoking fn once from the owning goroutine. Run
	// returns after fn returns or Stop is called; it does not return while
	// the loop is active.
	Run(fn func(wake <-chan struct{}, stop <-chan struct{}))

	// NewWakeup returns a Wakeup bound to this loop's wake channel.
	NewWakeup() Wakeup

	// Stop signals the loop to exit and blocks until Run returns.
	Stop()
}
