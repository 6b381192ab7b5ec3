// Package pool provides reusable transfer buffers.
//
// Batch runs move many objects with the same chunk size back to back, so
// part buffers and copy buffers are pooled instead of reallocated per
// object.
package pool

import "sync"

// CopyBufferSize is the size of the pooled io.CopyBuffer buffers (256 KiB).
const CopyBufferSize = 256 * 1024

var copyPool = sync.Pool{
	New: func() any {
		buf := make([]byte, CopyBufferSize)
		return &buf
	},
}

// CopyBuffer returns a buffer suitable for io.CopyBuffer.
// Return it with ReleaseCopyBuffer when done.
func CopyBuffer() []byte {
	return *copyPool.Get().(*[]byte)
}

// ReleaseCopyBuffer returns a copy buffer to the pool.
// The buffer must not be used after release.
func ReleaseCopyBuffer(buf []byte) {
	if cap(buf) != CopyBufferSize {
		return
	}
	buf = buf[:CopyBufferSize]
	copyPool.Put(&buf)
}

// Chunks pools part-sized buffers keyed by their size. Chunk sizes vary
// between runs but stay constant within one, so each size gets its own
// sync.Pool.
type Chunks struct {
	mu    sync.Mutex
	pools map[int64]*sync.Pool
}

// NewChunks creates an empty chunk-buffer pool.
func NewChunks() *Chunks {
	return &Chunks{pools: make(map[int64]*sync.Pool)}
}

// Get returns a buffer of exactly size bytes.
func (c *Chunks) Get(size int64) []byte {
	c.mu.Lock()
	p, ok := c.pools[size]
	if !ok {
		p = &sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		}
		c.pools[size] = p
	}
	c.mu.Unlock()

	return *p.Get().(*[]byte)
}

// Put returns a buffer obtained from Get.
// The buffer must not be used after being returned.
func (c *Chunks) Put(buf []byte) {
	size := int64(cap(buf))
	c.mu.Lock()
	p, ok := c.pools[size]
	c.mu.Unlock()
	if !ok {
		return
	}
	buf = buf[:size]
	p.Put(&buf)
}

// DefaultChunks is the shared chunk-buffer pool.
var DefaultChunks = NewChunks()
