package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

const articleColumns = "ean, article_number, name, unit, price"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (models.Article, error) {
	var (
		a     models.Article
		price string
	)
	if err := row.Scan(&a.EAN, &a.ArticleNumber, &a.Name, &a.Unit, &price); err != nil {
		return models.Article{}, err
	}
	p, err := parseDecimal("price", price)
	if err != nil {
		return models.Article{}, err
	}
	a.Price = p
	return a, nil
}

func getArticle(ctx context.Context, q querier, ean string) (models.Article, bool, error) {
	row := q.QueryRowContext(ctx, "SELECT "+articleColumns+" FROM articles WHERE ean = ?", ean)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Article{}, false, nil
	}
	if err != nil {
		return models.Article{}, false, fmt.Errorf("get article: %w", err)
	}
	return a, true, nil
}

// putArticle upserts by EAN. ON CONFLICT DO UPDATE keeps the existing rowid,
// so an edited article keeps its insertion position.
func putArticle(ctx context.Context, q querier, a models.Article) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO articles (ean, article_number, name, unit, price)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ean) DO UPDATE SET
			article_number = excluded.article_number,
			name = excluded.name,
			unit = excluded.unit,
			price = excluded.price
	`, a.EAN, a.ArticleNumber, a.Name, a.Unit, a.Price.String())
	if err != nil {
		return fmt.Errorf("put article %s: %w", a.EAN, err)
	}
	return nil
}

func listArticles(ctx context.Context, q querier) ([]models.Article, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+articleColumns+" FROM articles ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

// GetArticle returns the article with the given EAN or a NotFound error.
func (s *Store) GetArticle(ctx context.Context, ean string) (models.Article, error) {
	db, err := s.conn("get article")
	if err != nil {
		return models.Article{}, err
	}
	a, ok, err := getArticle(ctx, db, ean)
	if err != nil {
		return models.Article{}, apperr.Storage("get article", err)
	}
	if !ok {
		return models.Article{}, apperr.NotFound("get article", "no article with ean %s", ean)
	}
	return a, nil
}

// ListArticles returns every article in insertion order.
func (s *Store) ListArticles(ctx context.Context) ([]models.Article, error) {
	db, err := s.conn("list articles")
	if err != nil {
		return nil, err
	}
	articles, err := listArticles(ctx, db)
	if err != nil {
		return nil, apperr.Storage("list articles", err)
	}
	return articles, nil
}

// ListArticlesByName returns every article ordered by name using the name index.
func (s *Store) ListArticlesByName(ctx context.Context) ([]models.Article, error) {
	db, err := s.conn("list articles by name")
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+articleColumns+" FROM articles ORDER BY name ASC, rowid ASC")
	if err != nil {
		return nil, apperr.Storage("list articles by name", err)
	}
	defer rows.Close()

	articles := []models.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, apperr.Storage("list articles by name", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list articles by name", err)
	}
	return articles, nil
}

// SearchArticles returns articles whose name contains query (case-folded),
// or whose EAN or article number contains query verbatim.
// An empty query returns every article.
func (s *Store) SearchArticles(ctx context.Context, query string) ([]models.Article, error) {
	articles, err := s.ListArticles(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return articles, nil
	}

	fold := cases.Fold()
	needle := fold.String(query)

	matches := []models.Article{}
	for _, a := range articles {
		switch {
		case strings.Contains(fold.String(a.Name), needle),
			strings.Contains(a.EAN, query),
			a.ArticleNumber != "" && strings.Contains(a.ArticleNumber, query):
			matches = append(matches, a)
		}
	}
	return matches, nil
}

// PutArticle inserts or overwrites the article keyed by its EAN.
func (s *Store) PutArticle(ctx context.Context, a models.Article) error {
	db, err := s.conn("put article")
	if err != nil {
		return err
	}
	if err := putArticle(ctx, db, a); err != nil {
		return apperr.Storage("put article", err)
	}
	return nil
}

// DeleteArticle removes the article with the given EAN. Absent EANs are a no-op.
func (s *Store) DeleteArticle(ctx context.Context, ean string) error {
	db, err := s.conn("delete article")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM articles WHERE ean = ?", ean); err != nil {
		return apperr.Storage("delete article", err)
	}
	return nil
}

// ClearArticles removes every article.
func (s *Store) ClearArticles(ctx context.Context) error {
	db, err := s.conn("clear articles")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM articles"); err != nil {
		return apperr.Storage("clear articles", err)
	}
	return nil
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	db, err := s.conn("count articles")
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, apperr.Storage("count articles", err)
	}
	return n, nil
}

// ReplaceArticles clears the article key space and inserts articles in order,
// all in one transaction.
func (s *Store) ReplaceArticles(ctx context.Context, articles []models.Article) error {
	return s.withTx(ctx, "replace articles", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM articles"); err != nil {
			return fmt.Errorf("clear articles: %w", err)
		}
		for _, a := range articles {
			if err := putArticle(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

// ArticleTx exposes the article key space inside one transaction.
type ArticleTx struct {
	tx *sql.Tx
}

// Get returns the article with ean and whether it exists.
func (t *ArticleTx) Get(ctx context.Context, ean string) (models.Article, bool, error) {
	return getArticle(ctx, t.tx, ean)
}

// Put upserts a by EAN.
func (t *ArticleTx) Put(ctx context.Context, a models.Article) error {
	return putArticle(ctx, t.tx, a)
}

// Clear removes every article.
func (t *ArticleTx) Clear(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM articles"); err != nil {
		return fmt.Errorf("clear articles: %w", err)
	}
	return nil
}

// UpdateArticles runs fn against the article key space in one transaction.
// The transaction commits only if fn returns nil.
func (s *Store) UpdateArticles(ctx context.Context, fn func(tx *ArticleTx) error) error {
	return s.withTx(ctx, "update articles", func(tx *sql.Tx) error {
		return fn(&ArticleTx{tx: tx})
	})
}
