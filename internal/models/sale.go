package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is an Article snapshot with a quantity.
// It marshals flat: the article fields plus "quantity".
type CartItem struct {
	Article
	Quantity int `json:"quantity"`
}

// LineTotal returns price × quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

// Sale is a completed transaction.
type Sale struct {
	// ID is assigned by the store and increases monotonically.
	ID int64 `json:"id,omitempty"`

	// Date is set at checkout and never changes.
	Date time.Time `json:"date"`

	// PersonnelNumber identifies the operator or customer.
	PersonnelNumber string `json:"personnelNumber"`

	// Items are copies taken at checkout.
	Items []CartItem `json:"items"`

	// Total is computed once at checkout and never recomputed.
	Total decimal.Decimal `json:"total"`

	// Paid may be toggled after creation.
	Paid bool `json:"paid"`
}

// ComputeTotal sums price × quantity over items.
func ComputeTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ItemCount returns the number of units across all line items.
func (s Sale) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}
