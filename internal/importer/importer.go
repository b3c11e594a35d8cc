// Package importer writes batches of articles into the store using the
// Merge or Overwrite strategy.
//
// The import engine is shared by every batch write path: file imports from
// the CLI and completed QR sync transfers. A whole batch runs in one
// transaction on the article key space, so a failed import leaves the
// catalog untouched.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
	"github.com/roach88/bruch/internal/store"
)

// Mode selects how an import treats the existing catalog.
type Mode string

const (
	// Merge upserts each incoming article and keeps the rest.
	Merge Mode = "merge"

	// Overwrite clears the catalog before inserting the batch.
	Overwrite Mode = "overwrite"
)

// ParseMode converts user input into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Merge:
		return Merge, nil
	case Overwrite:
		return Overwrite, nil
	default:
		return "", apperr.Validation("parse import mode", "unknown mode %q (want merge or overwrite)", s)
	}
}

// Result reports how many articles an import inserted and overwrote.
type Result struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// Engine imports article batches into a store.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an import engine. A nil logger uses slog.Default().
func New(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger}
}

// Import writes articles using mode.
//
// Overwrite reports every article as added. Merge counts an article whose
// EAN already exists (including an earlier row of the same batch) as
// updated, and the last occurrence of an EAN wins.
//
// Every article is normalized and validated before the store is touched.
func (e *Engine) Import(ctx context.Context, articles []models.Article, mode Mode) (Result, error) {
	if mode != Merge && mode != Overwrite {
		return Result{}, apperr.Validation("import", "unknown mode %q", mode)
	}

	batch := make([]models.Article, len(articles))
	for i, a := range articles {
		a = a.Normalize()
		if err := a.Validate(); err != nil {
			return Result{}, fmt.Errorf("article %d: %w", i+1, err)
		}
		batch[i] = a
	}

	var result Result
	err := e.store.UpdateArticles(ctx, func(tx *store.ArticleTx) error {
		result = Result{}
		if mode == Overwrite {
			if err := tx.Clear(ctx); err != nil {
				return err
			}
			for _, a := range batch {
				if err := tx.Put(ctx, a); err != nil {
					return err
				}
			}
			result.Added = len(batch)
			return nil
		}

		for _, a := range batch {
			_, exists, err := tx.Get(ctx, a.EAN)
			if err != nil {
				return err
			}
			if err := tx.Put(ctx, a); err != nil {
				return err
			}
			if exists {
				result.Updated++
			} else {
				result.Added++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	e.logger.Info("articles imported",
		"mode", string(mode),
		"added", result.Added,
		"updated", result.Updated,
	)
	return result, nil
}
