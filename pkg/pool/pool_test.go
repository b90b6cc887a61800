package pool

import (
	"bytes"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct {
	n int
}

func TestPoolResetsOnPut(t *testing.T) {
	p := New(func() *counter { return &counter{} }, func(c *counter) { c.n = 0 })

	c := p.Get()
	c.n = 42
	p.Put(c)

	assert.Equal(t, 0, c.n)
}

func TestPoolUnderConcurrency(t *testing.T) {
	var allocated int64
	p := New(func() *counter {
		atomic.AddInt64(&allocated, 1)
		return &counter{}
	}, func(c *counter) { c.n = 0 })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := p.Get()
				assert.Equal(t, 0, c.n)
				c.n++
				p.Put(c)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&allocated), int64(800))
}

func TestBufferPoolDropsOversizedBuffers(t *testing.T) {
	p := NewBufferPool(16, 64)

	buf := p.Get()
	assert.Equal(t, 0, buf.Len())
	buf.WriteString("hello")
	p.Put(buf)

	big := p.Get()
	big.Write(bytes.Repeat([]byte("x"), 1024))
	p.Put(big)

	for i := 0; i < 4; i++ {
		next := p.Get()
		assert.Equal(t, 0, next.Len())
		assert.LessOrEqual(t, next.Cap(), 64)
	}

	p.Put(nil)
}
