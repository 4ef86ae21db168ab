package storage

import (
	"context"
	"sync"

	"github.com/rl1809/shop-api/internal/port"
)

// MemoryCheckoutGuard is the single-process checkout guard used when Redis is
// not configured. Keys are never expired; restarts forget them, which matches
// the durability of the in-memory backend it ships with.
type MemoryCheckoutGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

func NewMemoryCheckoutGuard() *MemoryCheckoutGuard {
	return &MemoryCheckoutGuard{seen: make(map[string]bool)}
}

var _ port.CheckoutGuard = (*MemoryCheckoutGuard)(nil)

func (g *MemoryCheckoutGuard) SetIdempotency(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}
