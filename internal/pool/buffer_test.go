package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyBufferRoundTrip(t *testing.T) {
	buf := CopyBuffer()
	assert.Len(t, buf, CopyBufferSize)
	ReleaseCopyBuffer(buf)

	again := CopyBuffer()
	assert.Len(t, again, CopyBufferSize)
	ReleaseCopyBuffer(again)
}

func TestReleaseCopyBufferIgnoresForeignBuffers(t *testing.T) {
	// Wrong-sized buffers must not poison the pool.
	ReleaseCopyBuffer(make([]byte, 10))

	buf := CopyBuffer()
	assert.Len(t, buf, CopyBufferSize)
	ReleaseCopyBuffer(buf)
}

func TestChunksGetExactSize(t *testing.T) {
	c := NewChunks()

	small := c.Get(5 * 1024 * 1024)
	assert.Len(t, small, 5*1024*1024)

	large := c.Get(8 * 1024 * 1024)
	assert.Len(t, large, 8*1024*1024)

	c.Put(small)
	c.Put(large)

	again := c.Get(5 * 1024 * 1024)
	assert.Len(t, again, 5*1024*1024)
	c.Put(again)
}

func TestChunksPutUnknownSizeIsNoop(t *testing.T) {
	c := NewChunks()
	c.Put(make([]byte, 123))
	assert.Len(t, c.Get(123), 123)
}
