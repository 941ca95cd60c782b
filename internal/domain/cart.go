package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one product in a cart. Quantity is always at least 1.
type CartLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=1"`
}

// Cart holds at most one line per product. A zero UserID means a guest cart
// that only exists on the client.
type Cart struct {
	UserID     uuid.UUID  `json:"user_id"`
	Lines      []CartLine `json:"lines"`
	CouponCode string     `json:"coupon_code,omitempty"`
}

// NewGuestCart builds a cart from client-held lines, folding duplicates and
// dropping non-positive quantities.
func NewGuestCart(lines []CartLine) *Cart {
	c := &Cart{}
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		c.AddItem(l.ProductID, l.Quantity)
	}
	return c
}

func (c *Cart) index(productID uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Line returns the line for productID, if any.
func (c *Cart) Line(productID uuid.UUID) (CartLine, bool) {
	if i := c.index(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

// AddItem increments an existing line or inserts a new one. qty below 1
// counts as 1.
func (c *Cart) AddItem(productID uuid.UUID, qty int) {
	if qty < 1 {
		qty = 1
	}
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity += qty
		return
	}
	c.Lines = append(c.Lines, CartLine{ProductID: productID, Quantity: qty})
}

// RemoveItem drops the line for productID. Missing lines are ignored.
func (c *Cart) RemoveItem(productID uuid.UUID) {
	if i := c.index(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// SetQuantity sets the line quantity. Zero or negative removes the line.
// Quantities above stock are rejected, never clamped.
func (c *Cart) SetQuantity(productID uuid.UUID, qty, stock int, productName string) error {
	if qty <= 0 {
		c.RemoveItem(productID)
		return nil
	}
	if qty > stock {
		return InsufficientStock(productName, stock)
	}
	if i := c.index(productID); i >= 0 {
		c.Lines[i].Quantity = qty
		return nil
	}
	c.Lines = append(c.Lines, CartLine{ProductID: productID, Quantity: qty})
	return nil
}

// Clear empties the cart and forgets the applied coupon.
func (c *Cart) Clear() {
	c.Lines = nil
	c.CouponCode = ""
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Total sums unit price times quantity using current prices. Lines whose
// product has no price are skipped.
func (c *Cart) Total(prices map[uuid.UUID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		price, ok := prices[l.ProductID]
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return Round2(total)
}

// Merge folds other into c: matching products sum quantities, the rest are
// appended. The caller discards other afterwards.
func (c *Cart) Merge(other *Cart) {
	if other == nil {
		return
	}
	for _, l := range other.Lines {
		if l.Quantity < 1 {
			continue
		}
		c.AddItem(l.ProductID, l.Quantity)
	}
}

// ProductIDs lists the products in line order.
func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
