package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/port"
)

// MemoryStore is the in-process backend: mutex-guarded maps with deep copies
// on every read and write, so callers never alias store state. It backs both
// the memory storage mode and the degraded mode entered when MySQL is
// unreachable at startup.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*domain.User
	usersByEmail map[string]string
	products     map[string]*domain.Product
	carts        map[string]*domain.Cart // keyed by userID
	orders       map[string]*domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*domain.User),
		usersByEmail: make(map[string]string),
		products:     make(map[string]*domain.Product),
		carts:        make(map[string]*domain.Cart),
		orders:       make(map[string]*domain.Order),
	}
}

var _ port.Store = (*MemoryStore)(nil)

func copyUser(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

func copyProduct(p *domain.Product) *domain.Product {
	cp := *p
	return &cp
}

func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Items = make([]domain.LineItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

func copyOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = make([]domain.LineItem, len(o.Items))
	copy(cp.Items, o.Items)
	return &cp
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByEmail[user.Email]; taken {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = copyUser(user)
	s.usersByEmail[user.Email] = user.ID
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	return copyUser(s.users[id]), nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[product.ID] = copyProduct(product)
	return nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return copyProduct(p), nil
}

func (s *MemoryStore) listProducts(match func(*domain.Product) bool) []domain.Product {
	results := []domain.Product{}
	for _, p := range s.products {
		if match(p) {
			results = append(results, *copyProduct(p))
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProducts(func(*domain.Product) bool { return true }), nil
}

func (s *MemoryStore) ListProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProducts(func(p *domain.Product) bool { return p.Category == category }), nil
}

func (s *MemoryStore) ListProductsBySeller(ctx context.Context, sellerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listProducts(func(p *domain.Product) bool { return p.SellerID == sellerID }), nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cp := copyProduct(product)
	cp.Stock = existing.Stock // stock only moves through AdjustStock
	s.products[product.ID] = cp
	return nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return nil, domain.ErrInsufficientStock
	}
	p.Stock += delta
	p.UpdatedAt = time.Now()
	return copyProduct(p), nil
}

func (s *MemoryStore) GetCartByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	return copyCart(c), nil
}

func (s *MemoryStore) SaveCart(ctx context.Context, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[cart.UserID] = copyCart(cart)
	return nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.ID] = copyOrder(order)
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (s *MemoryStore) listOrders(match func(*domain.Order) bool) []domain.Order {
	results := []domain.Order{}
	for _, o := range s.orders {
		if match(o) {
			results = append(results, *copyOrder(o))
		}
	}
	// newest first, the order history view
	sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.After(results[j].CreatedAt) })
	return results
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listOrders(func(*domain.Order) bool { return true }), nil
}

func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listOrders(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (s *MemoryStore) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listOrders(func(o *domain.Order) bool { return o.Status == status }), nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if o.Status != from {
		return nil, port.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return copyOrder(o), nil
}

func (s *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orders, id)
	return nil
}
