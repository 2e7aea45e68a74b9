package system

import (
	"image"
	"sync"
)

// ImagePool переиспользует буферы *image.RGBA и *image.Gray одного размера,
// чтобы снизить нагрузку на GC при обработке страниц.
// Пул реентерабелен: два одновременных Get никогда не вернут один и тот же буфер.
type ImagePool struct {
	pools map[poolKey]*sync.Pool
	mu    sync.RWMutex
}

type poolKey struct {
	rect image.Rectangle
	gray bool
}

// NewImagePool creates an empty pool.
func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[poolKey]*sync.Pool)}
}

// Get возвращает *image.RGBA из пула или создает новый.
// Содержимое буфера не очищается.
func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	if p == nil {
		return image.NewRGBA(rect)
	}
	return p.pool(poolKey{rect: rect}).Get().(*image.RGBA)
}

// Put возвращает буфер в пул для повторного использования.
func (p *ImagePool) Put(img *image.RGBA) {
	if p == nil || img == nil {
		return
	}
	p.pool(poolKey{rect: img.Rect}).Put(img)
}

// GetGray is Get for single-channel masks.
func (p *ImagePool) GetGray(rect image.Rectangle) *image.Gray {
	if p == nil {
		return image.NewGray(rect)
	}
	return p.pool(poolKey{rect: rect, gray: true}).Get().(*image.Gray)
}

// PutGray is Put for single-channel masks.
func (p *ImagePool) PutGray(img *image.Gray) {
	if p == nil || img == nil {
		return
	}
	p.pool(poolKey{rect: img.Rect, gray: true}).Put(img)
}

func (p *ImagePool) pool(key poolKey) *sync.Pool {
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()
	if exists {
		return pool
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// Double check
	if pool, exists = p.pools[key]; exists {
		return pool
	}
	pool = &sync.Pool{
		New: func() interface{} {
			if key.gray {
				return image.NewGray(key.rect)
			}
			return image.NewRGBA(key.rect)
		},
	}
	p.pools[key] = pool
	return pool
}
