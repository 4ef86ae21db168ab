package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/pkg/keylock"
	"github.com/rl1809/shop-api/internal/pkg/logger"
	"github.com/rl1809/shop-api/internal/port"
)

// CartService owns all cart mutations. Every mutation for a user runs under
// that user's key lock, so concurrent requests cannot lose each other's
// read-modify-write.
type CartService struct {
	carts    port.CartStore
	products port.ProductStore
	locks    *keylock.KeyLock
	log      *logger.Logger
}

func NewCartService(carts port.CartStore, products port.ProductStore, locks *keylock.KeyLock, log *logger.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		locks:    locks,
		log:      log.With("service", "cart"),
	}
}

func (s *CartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, domain.ErrNotFound
	}
	return cart, nil
}

// getOrCreate returns the user's cart, creating it lazily on first use.
// Callers must hold the user's lock.
func (s *CartService) getOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.carts.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = domain.NewCart(uuid.NewString(), userID)
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *domain.Cart) error {
	cart.RecalculateTotal()
	cart.UpdatedAt = time.Now()
	return s.carts.SaveCart(ctx, cart)
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.locks.Do(userID, func() error {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		if quantity < 1 || product.Stock < quantity {
			return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, product.Name)
		}

		cart, err = s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}

		if item := cart.FindItem(productID); item != nil {
			item.Quantity += quantity
		} else {
			cart.Items = append(cart.Items, domain.LineItem{
				ProductID: productID,
				Name:      product.Name,
				Price:     product.Price,
				Quantity:  quantity,
			})
		}
		return s.save(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.locks.Do(userID, func() error {
		product, err := s.products.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		if quantity > product.Stock {
			return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, product.Name)
		}

		cart, err = s.carts.GetCartByUser(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return domain.ErrNotFound
		}

		item := cart.FindItem(productID)
		if item == nil {
			return domain.ErrNotFound
		}
		if quantity <= 0 {
			cart.RemoveItem(productID)
		} else {
			item.Quantity = quantity
		}
		return s.save(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem is idempotent: removing an absent item succeeds.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.locks.Do(userID, func() error {
		var err error
		cart, err = s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		cart.RemoveItem(productID)
		return s.save(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart *domain.Cart
	err := s.locks.Do(userID, func() error {
		var err error
		cart, err = s.getOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		cart.Clear()
		return s.save(ctx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}
