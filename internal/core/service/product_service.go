package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/pkg/logger"
	"github.com/rl1809/shop-api/internal/port"
)

type ProductService struct {
	products port.ProductStore
	log      *logger.Logger
}

func NewProductService(products port.ProductStore, log *logger.Logger) *ProductService {
	return &ProductService{products: products, log: log.With("service", "product")}
}

type ProductInput struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.ListProducts(ctx)
}

func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return s.products.ListProductsByCategory(ctx, category)
}

func (s *ProductService) ListBySeller(ctx context.Context, sellerID string) ([]domain.Product, error) {
	return s.products.ListProductsBySeller(ctx, sellerID)
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, actor domain.Actor, in ProductInput) (*domain.Product, error) {
	if !actor.Role.In(domain.RoleAdmin, domain.RoleSeller) {
		return nil, domain.ErrForbidden
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if in.Stock < 0 {
		return nil, fmt.Errorf("%w: stock must not be negative", domain.ErrInvalidInput)
	}

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Price:       in.Price,
		Stock:       in.Stock,
		Description: in.Description,
		Category:    in.Category,
		SellerID:    actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.log.Info("product created", "productID", product.ID, "sellerID", actor.ID)
	return product, nil
}

// canManage applies the ownership rule: a product is managed by its seller or
// by an admin.
func canManage(actor domain.Actor, p *domain.Product) bool {
	return actor.Role == domain.RoleAdmin || p.SellerID == actor.ID
}

func (s *ProductService) Update(ctx context.Context, actor domain.Actor, id string, in ProductInput) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, product) {
		return nil, domain.ErrForbidden
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}

	product.Name = in.Name
	product.Price = in.Price
	product.Description = in.Description
	product.Category = in.Category
	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *ProductService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, product) {
		return domain.ErrForbidden
	}
	return s.products.DeleteProduct(ctx, id)
}

// AdjustStock applies a signed delta: positive restocks, negative consumes.
func (s *ProductService) AdjustStock(ctx context.Context, actor domain.Actor, id string, delta int) (*domain.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, product) {
		return nil, domain.ErrForbidden
	}
	return s.products.AdjustStock(ctx, id, delta)
}
