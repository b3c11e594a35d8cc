package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/bruch/internal/apperr"
)

func init() {
	// Exported article files carry prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// DefaultUnit is used when an article is created without a unit.
const DefaultUnit = "Stück"

// Article is a sellable product definition.
type Article struct {
	// EAN is the barcode payload and primary key. Immutable once created.
	EAN string `json:"ean"`

	// ArticleNumber is an optional secondary identifier. Not unique.
	ArticleNumber string `json:"articleNumber,omitempty"`

	Name  string          `json:"name"`
	Unit  string          `json:"unit"`
	Price decimal.Decimal `json:"price"`
}

// Normalize trims whitespace, NFC-normalizes the name, and fills the default unit.
func (a Article) Normalize() Article {
	a.EAN = strings.TrimSpace(a.EAN)
	a.ArticleNumber = strings.TrimSpace(a.ArticleNumber)
	a.Name = norm.NFC.String(strings.TrimSpace(a.Name))
	a.Unit = strings.TrimSpace(a.Unit)
	if a.Unit == "" {
		a.Unit = DefaultUnit
	}
	return a
}

// Validate rejects articles that must never reach the store.
func (a Article) Validate() error {
	if strings.TrimSpace(a.EAN) == "" {
		return apperr.Validation("validate article", "ean is empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return apperr.Validation("validate article", "name is empty for ean %s", a.EAN)
	}
	if a.Price.IsNegative() {
		return apperr.Validation("validate article", "price %s is negative for ean %s", a.Price, a.EAN)
	}
	return nil
}

// Equal reports whether two articles hold the same values.
// Prices compare numerically, so 2 and 2.00 are equal.
func (a Article) Equal(b Article) bool {
	return a.EAN == b.EAN &&
		a.ArticleNumber == b.ArticleNumber &&
		a.Name == b.Name &&
		a.Unit == b.Unit &&
		a.Price.Equal(b.Price)
}

// ParsePrice parses a user-entered price. Comma decimals are accepted
// ("1,99" == "1.99"), a trailing euro sign is ignored, and the result is
// rounded to cents.
func ParsePrice(text string) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimSpace(strings.TrimSuffix(s, "€"))
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, apperr.Validation("parse price", "price is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperr.Validation("parse price", "%q is not a number", text)
	}
	if d.IsNegative() {
		return decimal.Zero, apperr.Validation("parse price", "%q is negative", text)
	}
	return d.Round(2), nil
}
