package render

import (
	"image"
	"sync"
)

// FramePool reuses *image.RGBA buffers keyed by their bounds, so long
// recordings do not allocate a new frame per tick.
type FramePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[string]*sync.Pool)}
}

// Get returns a buffer with the given bounds. Its contents are undefined.
func (p *FramePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put hands a buffer back. Buffers of an unknown size are dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}

// Snapshot copies src into a pooled buffer.
func (p *FramePool) Snapshot(src *image.RGBA) *image.RGBA {
	dst := p.Get(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}
