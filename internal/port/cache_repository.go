package port

import "context"

// CheckoutGuard deduplicates checkout attempts carrying a client request ID.
type CheckoutGuard interface {
	// SetIdempotency records the key, returning false if it was already set.
	SetIdempotency(ctx context.Context, key string) (bool, error)
}
