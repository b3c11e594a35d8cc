package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/bruch/internal/models"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestArticle creates an article with a price given as text.
func createTestArticle(ean, name, price string) models.Article {
	return models.Article{
		EAN:   ean,
		Name:  name,
		Unit:  models.DefaultUnit,
		Price: decimal.RequireFromString(price),
	}
}

// createTestSale creates an unsaved sale of one line at date.
func createTestSale(date time.Time, a models.Article, qty int) models.Sale {
	items := []models.CartItem{{Article: a, Quantity: qty}}
	return models.Sale{
		Date:            date,
		PersonnelNumber: "4711",
		Items:           items,
		Total:           models.ComputeTotal(items),
	}
}

var baseTime = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
