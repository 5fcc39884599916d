package engine

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// OpLimiter paces writes per operation. A nil limiter lets everything through.
type OpLimiter struct {
	mu sync.Mutex
	m  map[Op]*rate.Limiter
	r  rate.Limit
	b  int
}

func NewOpLimiter(perSec float64, burst int) *OpLimiter {
	if perSec <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &OpLimiter{
		m: make(map[Op]*rate.Limiter),
		r: rate.Limit(perSec),
		b: burst,
	}
}

func (l *OpLimiter) limiterFor(op Op) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.m[op]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.m[op] = lim
	return lim
}

// Wait blocks until op may proceed or ctx is done.
func (l *OpLimiter) Wait(ctx context.Context, op Op) error {
	if l == nil {
		return nil
	}
	return l.limiterFor(op).Wait(ctx)
}
