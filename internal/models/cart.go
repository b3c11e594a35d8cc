package models

import "github.com/shopspring/decimal"

// Cart is the working-memory basket a sale is built from. It is never persisted.
// The zero value is an empty cart ready for use.
type Cart struct {
	items []CartItem
}

// Add puts one unit of article into the cart. Scanning an article that is
// already in the cart increments its quantity.
func (c *Cart) Add(article Article) {
	for i := range c.items {
		if c.items[i].EAN == article.EAN {
			c.items[i].Quantity++
			return
		}
	}
	c.items = append(c.items, CartItem{Article: article, Quantity: 1})
}

// SetQuantity changes the quantity of ean. A quantity of zero or less removes the line.
func (c *Cart) SetQuantity(ean string, quantity int) {
	for i := range c.items {
		if c.items[i].EAN != ean {
			continue
		}
		if quantity <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
		c.items[i].Quantity = quantity
		return
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// Units returns the total number of units.
func (c *Cart) Units() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// Subtotal returns the current sum of price × quantity.
func (c *Cart) Subtotal() decimal.Decimal {
	return ComputeTotal(c.items)
}
