// Package bufpool hands out reusable byte buffers for the 3,840-byte PCM
// frame shape (and a couple of smaller/larger classes for accumulator and
// stderr-capture use) so the streaming path avoids an allocation per frame.
package bufpool

import "sync"

// FrameSize is the fixed shape of one canonical PCM frame (960 stereo
// samples, 16-bit LE): 960 * 2 channels * 2 bytes.
const FrameSize = 3840

var sizeClasses = []int{256, FrameSize, 4096}

type classPool struct {
	size int
	pool *sync.Pool
}

// Pool provides sized byte slices backed by reusable buffers.
type Pool struct {
	pools []classPool
}

var defaultPool = New()

// GetFrame acquires a zeroed FrameSize buffer from the default pool.
func GetFrame() []byte { return defaultPool.Get(FrameSize) }

// Get acquires a buffer of the requested size from the default pool.
func Get(size int) []byte { return defaultPool.Get(size) }

// Put releases a buffer back to the default pool.
func Put(buf []byte) { defaultPool.Put(buf) }

// New creates a buffer pool with size classes tailored to the PCM frame
// shape plus a small accumulator class and a stderr-capture class.
func New() *Pool {
	pools := make([]classPool, len(sizeClasses))
	for i, classSize := range sizeClasses {
		size := classSize
		pools[i] = classPool{
			size: size,
			pool: &sync.Pool{New: func() any { return make([]byte, size) }},
		}
	}
	return &Pool{pools: pools}
}

// Get returns a slice of exactly the requested length, backed by the
// nearest size class with enough capacity. Requests larger than the
// largest class allocate directly without pooling.
func (p *Pool) Get(size int) []byte {
	if p == nil || size <= 0 {
		return nil
	}
	for i := range p.pools {
		class := &p.pools[i]
		if size <= class.size {
			buf := class.pool.Get().([]byte)
			return buf[:size]
		}
	}
	return make([]byte, size)
}

// Put returns buf to the pool if its capacity matches a known size class.
// The buffer is zeroed before reuse so no audio data leaks across callers.
func (p *Pool) Put(buf []byte) {
	if p == nil || buf == nil {
		return
	}
	capBuf := cap(buf)
	for i := range p.pools {
		class := &p.pools[i]
		if capBuf == class.size {
			full := buf[:class.size]
			clear(full)
			class.pool.Put(full)
			return
		}
	}
}
