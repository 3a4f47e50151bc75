// File: queue/sendqueue.go
// Package queue implements the bounded send queue (component F): a FIFO of
// outgoing items that producers on any goroutine submit under a mutex, and
// the I/O loop drains on a coalesced flush.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The teacher module (hioload-ws) declares github.com/eapache/queue in its
// go.mod but never imports it anywhere in the tree; this is its home. The
// ring-backed eapache/queue.Queue replaces a hand-rolled slice/ring buffer
// for the same amortized O(1) push/pop this queue needs.

package queue

import (
	"errors"
	"sync"

	"github.com/eapache/queue"
)

// Capacity is the fixed bound spec.md §3 gives the send queue.
const Capacity = 1024

// ErrFull is returned by Push when the queue is at capacity; the submission
// fails rather than silently dropping the item (spec.md §3).
var ErrFull = errors.New("websocket: send queue is full")

// Kind distinguishes the tagged item variants spec.md §3 describes.
type Kind int

const (
	KindText Kind = iota
	KindBinary
	KindClose
)

// Item is a tagged send-queue entry.
type Item struct {
	Kind       Kind
	Text       string
	Binary     []byte
	CloseCode  uint16
	CloseReason string
}

// SendQueue is a bounded, mutex-guarded FIFO. A Wakeup callback (bound at
// construction) is invoked after every successful Push so the owning I/O
// loop can be signaled regardless of which goroutine called Push.
type SendQueue struct {
	mu       sync.Mutex
	q        *queue.Queue
	wake     func()
	closed   bool
}

// New constructs an empty send queue. wake may be nil in tests that only
// exercise Push/Pop directly.
func New(wake func()) *SendQueue {
	return &SendQueue{q: queue.New(), wake: wake}
}

// Push enqueues item, failing with ErrFull at capacity. Once a Close item
// has been pushed, subsequent pushes are rejected: a local or remote close
// is terminal with respect to outgoing application data (spec.md §3, §4.F).
func (s *SendQueue) Push(item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrFull
	}
	if s.q.Length() >= Capacity {
		return ErrFull
	}
	s.q.Add(item)
	if item.Kind == KindClose {
		s.closed = true
	}
	if s.wake != nil {
		s.wake()
	}
	return nil
}

// Pop removes and returns the oldest item, or ok=false if empty.
func (s *SendQueue) Pop() (item Item, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.q.Length() == 0 {
		return Item{}, false
	}
	v := s.q.Peek()
	s.q.Remove()
	return v.(Item), true
}

// DrainAll pops every currently queued item in FIFO order, for the
// coalesced flush the I/O loop performs on each wakeup.
func (s *SendQueue) DrainAll() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.q.Length()
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		v := s.q.Peek()
		s.q.Remove()
		items = append(items, v.(Item))
	}
	return items
}

// Len reports the current queue depth.
func (s *SendQueue) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Length()
}
