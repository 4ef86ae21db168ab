package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-api/internal/core/domain"
	"github.com/rl1809/shop-api/internal/pkg/keylock"
	"github.com/rl1809/shop-api/internal/pkg/logger"
	"github.com/rl1809/shop-api/internal/port"
)

// OrderService drives the cart → order workflow: checkout runs as an
// in-process saga (stock decrements, order insert, cart clear, each with a
// compensating action), and every status move goes through one adjacency
// table enforced by a compare-and-swap at the store.
type OrderService struct {
	orders   port.OrderStore
	carts    port.CartStore
	products port.ProductStore
	guard    port.CheckoutGuard
	locks    *keylock.KeyLock
	log      *logger.Logger
}

func NewOrderService(
	orders port.OrderStore,
	carts port.CartStore,
	products port.ProductStore,
	guard port.CheckoutGuard,
	locks *keylock.KeyLock,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		carts:    carts,
		products: products,
		guard:    guard,
		locks:    locks,
		log:      log.With("service", "order"),
	}
}

// Create places an order from the actor's cart. requestID is an optional
// client idempotency token; a replay fails with ErrDuplicateRequest.
func (s *OrderService) Create(ctx context.Context, actor domain.Actor, requestID string) (*domain.Order, error) {
	if actor.Role != domain.RoleCustomer {
		return nil, domain.ErrForbidden
	}

	if requestID != "" {
		key := fmt.Sprintf("%s:%s", actor.ID, requestID)
		ok, err := s.guard.SetIdempotency(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	var order *domain.Order
	err := s.locks.Do(actor.ID, func() error {
		cart, err := s.carts.GetCartByUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		if cart == nil || cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		// Upfront validation pass, naming the offending product.
		for _, item := range cart.Items {
			product, err := s.products.GetProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("%w: product %s", domain.ErrNotFound, item.ProductID)
			}
			if product.Stock < item.Quantity {
				return fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, product.Name)
			}
		}

		order, err = s.runCheckoutSaga(ctx, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// runCheckoutSaga decrements stock per item, inserts the order, then clears
// the cart. Any failure unwinds the steps already applied; the validation
// pass has run, so a mid-loop failure here means a concurrent consumer or the
// store going away.
func (s *OrderService) runCheckoutSaga(ctx context.Context, cart *domain.Cart) (*domain.Order, error) {
	decremented := []domain.LineItem{}
	rollbackStock := func() {
		for _, item := range decremented {
			if _, err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
				s.log.Error("checkout rollback failed, stock inconsistent",
					"productID", item.ProductID, "quantity", item.Quantity, "error", err)
			}
		}
	}

	for _, item := range cart.Items {
		if _, err := s.products.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			rollbackStock()
			if errors.Is(err, domain.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: product %s", domain.ErrInsufficientStock, item.Name)
			}
			return nil, err
		}
		decremented = append(decremented, item)
	}

	now := time.Now()
	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      cart.UserID,
		Items:       cart.CopyItems(),
		TotalAmount: cart.TotalAmount,
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		rollbackStock()
		return nil, fmt.Errorf("create order: %w", err)
	}

	cart.Clear()
	cart.UpdatedAt = now
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		if delErr := s.orders.DeleteOrder(ctx, order.ID); delErr != nil {
			s.log.Error("checkout rollback failed, orphan order left behind",
				"orderID", order.ID, "error", delErr)
		}
		rollbackStock()
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	s.log.Info("order created", "orderID", order.ID, "userID", order.UserID,
		"items", len(order.Items), "total", order.TotalAmount)
	return order, nil
}

func (s *OrderService) get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// Get enforces visibility: customers see only their own orders.
func (s *OrderService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID && !actor.Role.In(domain.RoleAdmin, domain.RoleSeller) {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if actor.Role.In(domain.RoleAdmin, domain.RoleSeller) {
		return s.orders.ListOrders(ctx)
	}
	return s.orders.ListOrdersByUser(ctx, actor.ID)
}

func (s *OrderService) ListByStatus(ctx context.Context, actor domain.Actor, statusName string) ([]domain.Order, error) {
	status, err := domain.ParseOrderStatus(statusName)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListOrdersByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if actor.Role.In(domain.RoleAdmin, domain.RoleSeller) {
		return orders, nil
	}
	own := []domain.Order{}
	for _, o := range orders {
		if o.UserID == actor.ID {
			own = append(own, o)
		}
	}
	return own, nil
}

// Cancel is allowed only to the owning user and only while the adjacency
// table permits a move to Cancelled. The status flip is a compare-and-swap,
// so concurrent cancels or status updates cannot restore stock twice.
func (s *OrderService) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.UserID != actor.ID {
		return nil, domain.ErrForbidden
	}
	return s.cancelOrder(ctx, order)
}

func (s *OrderService) cancelOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if !order.CanBeCancelled() {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, order.ID, order.Status, domain.OrderStatusCancelled)
	if err != nil {
		if errors.Is(err, port.ErrConflict) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}

	// Stock restoration after the CAS: the flip above is the commit point,
	// so a lost race never refunds twice.
	for _, item := range order.Items {
		if _, err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("stock restore failed on cancellation",
				"orderID", order.ID, "productID", item.ProductID, "error", err)
		}
	}

	s.log.Info("order cancelled", "orderID", order.ID)
	return updated, nil
}

// UpdateStatus moves an order along the lifecycle. Admin/Seller only; a move
// to Cancelled routes through the stock-restoring cancellation path.
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Actor, id, statusName string) (*domain.Order, error) {
	if !actor.Role.In(domain.RoleAdmin, domain.RoleSeller) {
		return nil, domain.ErrForbidden
	}
	status, err := domain.ParseOrderStatus(statusName)
	if err != nil {
		return nil, err
	}

	order, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if status == domain.OrderStatusCancelled {
		return s.cancelOrder(ctx, order)
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.orders.UpdateOrderStatus(ctx, id, order.Status, status)
	if err != nil {
		if errors.Is(err, port.ErrConflict) {
			return nil, domain.ErrInvalidTransition
		}
		return nil, err
	}

	s.log.Info("order status updated", "orderID", id, "from", order.Status, "to", status)
	return updated, nil
}
