package pos

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

// Filter selects sales by payment state.
type Filter string

const (
	FilterAll  Filter = "all"
	FilterPaid Filter = "paid"
	FilterOpen Filter = "open"
)

// ParseFilter converts user input into a Filter. Empty input means all.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterAll:
		return FilterAll, nil
	case FilterPaid, FilterOpen:
		return f, nil
	default:
		return "", apperr.Validation("parse filter", "unknown filter %q (want all, paid or open)", s)
	}
}

// Sales returns the sales matching filter, newest first.
func (r *Register) Sales(ctx context.Context, filter Filter) ([]models.Sale, error) {
	all, err := r.store.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	if filter == FilterAll || filter == "" {
		return all, nil
	}
	out := make([]models.Sale, 0, len(all))
	for _, s := range all {
		if s.Paid == (filter == FilterPaid) {
			out = append(out, s)
		}
	}
	return out, nil
}

// SetPaid marks a sale as paid or open.
func (r *Register) SetPaid(ctx context.Context, id int64, paid bool) error {
	if err := r.store.SetSalePaid(ctx, id, paid); err != nil {
		return err
	}
	r.logger.Info("sale payment updated", "id", id, "paid", paid)
	return nil
}

// DeleteSale removes one sale.
func (r *Register) DeleteSale(ctx context.Context, id int64) error {
	if err := r.store.DeleteSale(ctx, id); err != nil {
		return err
	}
	r.logger.Info("sale deleted", "id", id)
	return nil
}

// ClearSales removes every sale.
func (r *Register) ClearSales(ctx context.Context) error {
	if err := r.store.ClearSales(ctx); err != nil {
		return err
	}
	r.logger.Info("sales cleared")
	return nil
}

// Summary aggregates revenue over every sale.
type Summary struct {
	Count       int             `json:"count"`
	Revenue     decimal.Decimal `json:"revenue"`
	PaidRevenue decimal.Decimal `json:"paidRevenue"`
	OpenRevenue decimal.Decimal `json:"openRevenue"`
	OpenCount   int             `json:"openCount"`
}

// Summary returns revenue totals split by payment state.
func (r *Register) Summary(ctx context.Context) (Summary, error) {
	sales, err := r.store.ListSales(ctx)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Revenue: decimal.Zero, PaidRevenue: decimal.Zero, OpenRevenue: decimal.Zero}
	for _, s := range sales {
		sum.Count++
		sum.Revenue = sum.Revenue.Add(s.Total)
		if s.Paid {
			sum.PaidRevenue = sum.PaidRevenue.Add(s.Total)
		} else {
			sum.OpenRevenue = sum.OpenRevenue.Add(s.Total)
			sum.OpenCount++
		}
	}
	return sum, nil
}

// DayStats counts the sales of one calendar day.
type DayStats struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Revenue decimal.Decimal `json:"revenue"`
}

// Today returns the number and revenue of sales dated on the current day
// of the register clock's location.
func (r *Register) Today(ctx context.Context) (DayStats, error) {
	sales, err := r.store.ListSales(ctx)
	if err != nil {
		return DayStats{}, err
	}
	now := r.clock.Now()
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	stats := DayStats{Date: start.Format("2006-01-02"), Revenue: decimal.Zero}
	for _, s := range sales {
		if !s.Date.Before(start) && s.Date.Before(end) {
			stats.Count++
			stats.Revenue = stats.Revenue.Add(s.Total)
		}
	}
	return stats, nil
}
