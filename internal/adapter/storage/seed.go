package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/port"
)

// SeedDemoData loads a small demo catalog and two accounts
// (admin@example.com / customer@example.com, password "password123").
// Intended for the in-memory backend; enabled explicitly by configuration.
func SeedDemoData(ctx context.Context, store port.Store) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed: hash password: %w", err)
	}

	now := time.Now()
	admin := &domain.User{
		ID:        uuid.NewString(),
		Email:     "admin@example.com",
		Username:  "admin",
		Password:  string(hash),
		Role:      domain.RoleAdmin,
		CreatedAt: now,
	}
	customer := &domain.User{
		ID:        uuid.NewString(),
		Email:     "customer@example.com",
		Username:  "customer",
		Password:  string(hash),
		Role:      domain.RoleCustomer,
		CreatedAt: now,
	}
	for _, u := range []*domain.User{admin, customer} {
		if err := store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed: create user %s: %w", u.Email, err)
		}
	}

	products := []*domain.Product{
		{
			ID:          uuid.NewString(),
			Name:        "Wireless Mouse",
			Price:       decimal.NewFromFloat(24.99),
			Stock:       120,
			Description: "2.4GHz wireless mouse",
			Category:    "Electronics",
			SellerID:    admin.ID,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Mechanical Keyboard",
			Price:       decimal.NewFromFloat(89.90),
			Stock:       45,
			Description: "Tenkeyless, brown switches",
			Category:    "Electronics",
			SellerID:    admin.ID,
		},
		{
			ID:          uuid.NewString(),
			Name:        "Coffee Beans 1kg",
			Price:       decimal.NewFromFloat(15.50),
			Stock:       300,
			Description: "Medium roast arabica",
			Category:    "Grocery",
			SellerID:    admin.ID,
		},
	}
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := store.CreateProduct(ctx, p); err != nil {
			return fmt.Errorf("seed: create product %s: %w", p.Name, err)
		}
	}
	return nil
}
