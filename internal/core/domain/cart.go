package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a product snapshot inside a cart or an order. Name and price
// are copied at the time the item is added so later product edits do not
// rewrite history.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Cart struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Items       []LineItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func NewCart(id, userID string) *Cart {
	return &Cart{
		ID:          id,
		UserID:      userID,
		Items:       []LineItem{},
		TotalAmount: decimal.Zero,
		UpdatedAt:   time.Now(),
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindItem returns a pointer into Items, or nil if the product is not in the cart.
func (c *Cart) FindItem(productID string) *LineItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

func (c *Cart) RemoveItem(productID string) {
	filtered := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			filtered = append(filtered, it)
		}
	}
	c.Items = filtered
}

func (c *Cart) Clear() {
	c.Items = []LineItem{}
	c.TotalAmount = decimal.Zero
}

// RecalculateTotal folds over all items. Always a full recompute, never an
// incremental adjustment, so the total cannot drift from the items.
func (c *Cart) RecalculateTotal() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	c.TotalAmount = total
}

// CopyItems returns a by-value snapshot of the cart's items.
func (c *Cart) CopyItems() []LineItem {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return items
}
