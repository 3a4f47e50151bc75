// File: api/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SyncBufferPool is the default BufferPool: a sync.Pool-backed allocator for
// the fixed-size scratch buffers the read loop copies transport bytes into
// before handing them to the Frame Parser. Grounded on the teacher's pooled
// zero-copy buffer design (api/buffer.go), trimmed from NUMA-segmented
// regions to a plain sync.Pool since the client engine has no per-core
// affinity requirement.

package api

import "sync"

type pooledBuffer struct {
	buf  []byte
	pool *SyncBufferPool
}

func (b *pooledBuffer) Bytes() []byte { return b.buf }

// Release returns the buffer to its pool. Safe to call at most once; a
// second call is a no-op beyond re-pooling the same slice, which the
// caller's discipline (release immediately after the data is copied out)
// avoids relying on.
func (b *pooledBuffer) Release() {
	if b.pool != nil {
		b.pool.put(b)
	}
}

// SyncBufferPool hands out byte slices of at least the requested size,
// reusing previously released buffers when they're large enough.
type SyncBufferPool struct {
	pool sync.Pool
}

// NewSyncBufferPool returns a ready-to-use pool.
func NewSyncBufferPool() *SyncBufferPool {
	return &SyncBufferPool{}
}

// Get implements BufferPool.
func (p *SyncBufferPool) Get(size int) Buffer {
	if v := p.pool.Get(); v != nil {
		pb := v.(*pooledBuffer)
		if cap(pb.buf) >= size {
			pb.buf = pb.buf[:size]
			return pb
		}
	}
	return &pooledBuffer{buf: make([]byte, size), pool: p}
}

// Put implements BufferPool.
func (p *SyncBufferPool) Put(b Buffer) {
	if pb, ok := b.(*pooledBuffer); ok {
		p.put(pb)
	}
}

func (p *SyncBufferPool) put(pb *pooledBuffer) {
	p.pool.Put(pb)
}
