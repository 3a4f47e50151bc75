// File: api/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Minimal pooled-buffer contract, kept from the teacher's zero-copy buffer
// design but trimmed to what the connection's read loop needs:
// a reusable byte slice, not a NUMA-segmented region.

package api

// Buffer is a reusable byte region returned to a BufferPool when the holder
// is done with it.
type Buffer interface {
	// Bytes returns the current view of the buffer's data.
	Bytes() []byte

	// Release returns the buffer to its owning pool. After Release the
	// buffer must not be used.
	Release()
}

// BufferPool hands out reusable byte buffers sized at least n bytes.
type BufferPool interface {
	Get(size int) Buffer
	Put(b Buffer)
}
