package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/bruch/internal/models"
)

// toNanos converts a timestamp to its stored form.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

// fromNanos converts a stored timestamp back to a UTC time.
func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// parseDecimal parses a stored decimal TEXT column.
func parseDecimal(column, text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s %q: %w", column, text, err)
	}
	return d, nil
}

// marshalItems converts sale lines to JSON TEXT for storage.
func marshalItems(items []models.CartItem) (string, error) {
	if items == nil {
		items = []models.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	return string(data), nil
}

// unmarshalItems parses stored sale lines.
func unmarshalItems(data string) ([]models.CartItem, error) {
	items := []models.CartItem{}
	if data == "" {
		return items, nil
	}
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return items, nil
}

// marshalSnapshot converts a backup's article and sale sets to JSON TEXT.
func marshalSnapshot(articles []models.Article, sales []models.Sale) (string, string, error) {
	if articles == nil {
		articles = []models.Article{}
	}
	if sales == nil {
		sales = []models.Sale{}
	}
	a, err := json.Marshal(articles)
	if err != nil {
		return "", "", fmt.Errorf("marshal backup articles: %w", err)
	}
	s, err := json.Marshal(sales)
	if err != nil {
		return "", "", fmt.Errorf("marshal backup sales: %w", err)
	}
	return string(a), string(s), nil
}

// unmarshalSnapshot parses a backup's stored article and sale sets.
func unmarshalSnapshot(articlesJSON, salesJSON string) ([]models.Article, []models.Sale, error) {
	articles := []models.Article{}
	if err := json.Unmarshal([]byte(articlesJSON), &articles); err != nil {
		return nil, nil, fmt.Errorf("unmarshal backup articles: %w", err)
	}
	sales := []models.Sale{}
	if err := json.Unmarshal([]byte(salesJSON), &sales); err != nil {
		return nil, nil, fmt.Errorf("unmarshal backup sales: %w", err)
	}
	return articles, sales, nil
}

// boolToInt converts a bool to the INTEGER stored for it.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
