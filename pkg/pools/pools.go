// Package pools reuses render buffers between frames.
package pools

import (
	"bytes"
	"sync"
)

const (
	// InitialBufferSize fits a frame with a few dozen nodes.
	InitialBufferSize = 16 << 10
	// MaxPooledBuffer is the largest buffer returned to a pool.
	MaxPooledBuffer = 1 << 20
)

// BufferPool pools *bytes.Buffer values, dropping oversized ones so one
// huge frame does not pin memory.
type BufferPool struct {
	pool sync.Pool
	max  int
}

// NewBufferPool returns a pool that keeps buffers up to maxCap bytes of
// capacity. Zero uses MaxPooledBuffer.
func NewBufferPool(maxCap int) *BufferPool {
	if maxCap <= 0 {
		maxCap = MaxPooledBuffer
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, InitialBufferSize))
			},
		},
		max: maxCap,
	}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool. Callers must not use buf afterwards.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > p.max {
		return
	}
	buf.Reset()
	p.pool.Put(buf)
}

var defaultBufferPool = NewBufferPool(0)

// GetBuffer takes a buffer from the shared pool.
func GetBuffer() *bytes.Buffer { return defaultBufferPool.Get() }

// PutBuffer returns a buffer to the shared pool.
func PutBuffer(buf *bytes.Buffer) { defaultBufferPool.Put(buf) }
