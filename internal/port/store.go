package port

import (
	"context"
	"errors"

	"github.com/rl1809/shop-api/internal/core/domain"
)

// ErrConflict reports a lost compare-and-swap race on an order status update.
var ErrConflict = errors.New("concurrent modification")

// Lookup methods return (nil, nil) when the entity does not exist; services
// translate absence into domain.ErrNotFound.

type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error)
	ListProductsBySeller(ctx context.Context, sellerID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error

	// AdjustStock applies a signed delta to the product's stock as one atomic
	// conditional write. It is the sole stock mutator: it fails with
	// domain.ErrInsufficientStock when stock+delta would go negative, leaving
	// stock unchanged, and with domain.ErrNotFound for an unknown product.
	AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error)
}

type CartStore interface {
	GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error)
	// SaveCart upserts the user's single cart.
	SaveCart(ctx context.Context, cart *domain.Cart) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)

	// UpdateOrderStatus flips status from expected `from` to `to` as a
	// compare-and-swap, returning ErrConflict when the current status no
	// longer matches and domain.ErrNotFound for an unknown order.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)

	// DeleteOrder exists only as the saga compensation for a checkout that
	// failed after the order row was written.
	DeleteOrder(ctx context.Context, id string) error
}

// Store bundles the per-entity stores a backend implements as one unit.
type Store interface {
	UserStore
	ProductStore
	CartStore
	OrderStore
}
