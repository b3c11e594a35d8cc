// Package pos implements the register flows: scanning, article editing,
// checkout, and sales bookkeeping.
//
// Every successful article edit, article delete and checkout is followed by
// an action backup. The store write is never rolled back when that backup
// fails; the caller receives an *ActionBackupError instead.
package pos

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/backup"
	"github.com/roach88/bruch/internal/models"
	"github.com/roach88/bruch/internal/store"
)

// ActionBackupError reports that a mutation succeeded but the action
// backup after it failed.
type ActionBackupError struct {
	Action string
	Err    error
}

func (e *ActionBackupError) Error() string {
	return fmt.Sprintf("%s saved, but action backup failed: %v", e.Action, e.Err)
}

func (e *ActionBackupError) Unwrap() error {
	return e.Err
}

// Register coordinates store writes with action backups.
type Register struct {
	store   *store.Store
	backups *backup.Manager
	clock   backup.Clock
	logger  *slog.Logger
}

// NewRegister creates a Register. It stamps sales with the backup
// manager's clock.
func NewRegister(st *store.Store, backups *backup.Manager, logger *slog.Logger) *Register {
	if logger == nil {
		logger = slog.Default()
	}
	return &Register{
		store:   st,
		backups: backups,
		clock:   backups.Clock(),
		logger:  logger,
	}
}

// Lookup returns the article for a scanned code. A NotFound error means
// the caller should offer to create the article.
func (r *Register) Lookup(ctx context.Context, ean string) (models.Article, error) {
	ean = strings.TrimSpace(ean)
	if ean == "" {
		return models.Article{}, apperr.Validation("lookup", "ean is empty")
	}
	return r.store.GetArticle(ctx, ean)
}

// NewArticle builds a validated article from form input.
// price accepts comma decimals; an empty unit becomes the default unit.
func NewArticle(ean, name, price, unit, articleNumber string) (models.Article, error) {
	p, err := models.ParsePrice(price)
	if err != nil {
		return models.Article{}, err
	}
	a := models.Article{
		EAN:           ean,
		ArticleNumber: articleNumber,
		Name:          name,
		Unit:          unit,
		Price:         p,
	}.Normalize()
	if err := a.Validate(); err != nil {
		return models.Article{}, err
	}
	return a, nil
}

// SaveArticle creates or overwrites an article, then takes an action backup.
func (r *Register) SaveArticle(ctx context.Context, a models.Article) (models.Article, error) {
	a = a.Normalize()
	if err := a.Validate(); err != nil {
		return models.Article{}, err
	}
	if err := r.store.PutArticle(ctx, a); err != nil {
		return models.Article{}, err
	}
	r.logger.Info("article saved", "ean", a.EAN, "price", a.Price.StringFixed(2))
	return a, r.actionBackup(ctx, "article")
}

// DeleteArticle removes an article, then takes an action backup.
func (r *Register) DeleteArticle(ctx context.Context, ean string) error {
	if err := r.store.DeleteArticle(ctx, ean); err != nil {
		return err
	}
	r.logger.Info("article deleted", "ean", ean)
	return r.actionBackup(ctx, "article deletion")
}

// Checkout records a sale of items, then takes an action backup.
//
// The items are copied into the sale and the total is computed once here.
// Later edits to the articles never change a recorded sale.
func (r *Register) Checkout(ctx context.Context, personnel string, items []models.CartItem, paid bool) (models.Sale, error) {
	personnel = strings.TrimSpace(personnel)
	if personnel == "" {
		return models.Sale{}, apperr.Validation("checkout", "personnel number is required")
	}
	if len(items) == 0 {
		return models.Sale{}, apperr.Validation("checkout", "cart is empty")
	}
	lines := make([]models.CartItem, len(items))
	for i, item := range items {
		if item.Quantity < 1 {
			return models.Sale{}, apperr.Validation("checkout", "quantity %d for %s is below 1", item.Quantity, item.EAN)
		}
		if err := item.Article.Validate(); err != nil {
			return models.Sale{}, err
		}
		lines[i] = item
	}

	sale := models.Sale{
		Date:            r.clock.Now(),
		PersonnelNumber: personnel,
		Items:           lines,
		Total:           models.ComputeTotal(lines),
		Paid:            paid,
	}
	if err := r.store.AddSale(ctx, &sale); err != nil {
		return models.Sale{}, err
	}
	r.logger.Info("sale recorded",
		"id", sale.ID,
		"items", sale.ItemCount(),
		"total", sale.Total.StringFixed(2),
		"paid", paid,
	)
	return sale, r.actionBackup(ctx, "sale")
}

func (r *Register) actionBackup(ctx context.Context, action string) error {
	if _, err := r.backups.CreateActionBackup(ctx); err != nil {
		r.logger.Error("action backup failed", "action", action, "error", err)
		return &ActionBackupError{Action: action, Err: err}
	}
	return nil
}
