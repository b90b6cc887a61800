// Package pool provides typed object pooling for rowstream's hot paths.
//
// Pool[T] wraps sync.Pool with a reset hook. BufferPool specializes it for
// bytes.Buffer, dropping oversized buffers so one huge row does not pin
// memory for the life of the process.
//
//	buffers := pool.NewBufferPool(4096, 1<<20)
//	buf := buffers.Get()
//	defer buffers.Put(buf)
package pool

import (
	"bytes"
	"sync"
)

// Pool is a type safe object pool. It is safe for concurrent use.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

// New creates a pool. reset, if non-nil, runs on every object handed to Put.
func New[T any](newFn func() T, reset func(T)) *Pool[T] {
	p := &Pool[T]{reset: reset}
	p.pool.New = func() interface{} { return newFn() }
	return p
}

// Get retrieves an object, allocating one when the pool is empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put resets obj and returns it to the pool.
func (p *Pool[T]) Put(obj T) {
	if p.reset != nil {
		p.reset(obj)
	}
	p.pool.Put(obj)
}

// BufferPool pools bytes.Buffers up to a maximum capacity.
type BufferPool struct {
	pool   *Pool[*bytes.Buffer]
	maxCap int
}

// NewBufferPool returns a pool of buffers preallocated to initialCap.
// Buffers that grew beyond maxCap are dropped on Put.
func NewBufferPool(initialCap, maxCap int) *BufferPool {
	return &BufferPool{
		pool: New(
			func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, initialCap)) },
			func(b *bytes.Buffer) { b.Reset() },
		),
		maxCap: maxCap,
	}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get()
}

// Put returns buf to the pool unless it is nil or oversized.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > p.maxCap {
		return
	}
	p.pool.Put(buf)
}
