// Command loadgen hammers the checkout path with concurrent customers
// competing over one product, then reports how many orders succeeded and
// whether any stock was oversold.
package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-api/internal/adapter/storage"
	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/core/service"
	"github.com/rl1809/shop-api/internal/pkg/keylock"
	"github.com/rl1809/shop-api/internal/pkg/logger"
)

const (
	initialStock = 20
	totalBuyers  = 50
	perBuyerQty  = 1
)

func main() {
	ctx := context.Background()
	log := logger.NewNop()

	store := storage.NewMemoryStore()
	locks := keylock.New()
	carts := service.NewCartService(store, store, locks, log)
	orders := service.NewOrderService(store, store, store, storage.NewMemoryCheckoutGuard(), locks, log)

	product := &domain.Product{
		ID:        uuid.NewString(),
		Name:      "flash-item",
		Price:     decimal.NewFromInt(10),
		Stock:     initialStock,
		SellerID:  "seller",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.CreateProduct(ctx, product); err != nil {
		panic(err)
	}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < totalBuyers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n)
			if _, err := carts.AddItem(ctx, userID, product.ID, perBuyerQty); err != nil {
				failCount.Add(1)
				return
			}
			actor := domain.Actor{ID: userID, Role: domain.RoleCustomer}
			if _, err := orders.Create(ctx, actor, uuid.NewString()); err != nil {
				failCount.Add(1)
				return
			}
			successCount.Add(1)
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	remaining, err := store.GetProduct(ctx, product.ID)
	if err != nil {
		panic(err)
	}

	fmt.Printf("buyers:    %d\n", totalBuyers)
	fmt.Printf("successes: %d\n", successCount.Load())
	fmt.Printf("failures:  %d\n", failCount.Load())
	fmt.Printf("stock:     %d -> %d\n", initialStock, remaining.Stock)
	fmt.Printf("elapsed:   %s\n", elapsed)

	if remaining.Stock < 0 {
		fmt.Println("OVERSOLD: stock went negative")
	}
	if int(successCount.Load())*perBuyerQty != initialStock-remaining.Stock {
		fmt.Println("MISMATCH: successes do not account for consumed stock")
	}
}
