package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

// BackupSummary describes a backup without loading its payload.
type BackupSummary struct {
	ID           int64
	Date         time.Time
	AutoBackup   bool
	ArticleCount int
	SaleCount    int
}

// AddBackup inserts a backup and sets b.ID to the store-assigned id.
func (s *Store) AddBackup(ctx context.Context, b *models.Backup) error {
	db, err := s.conn("add backup")
	if err != nil {
		return err
	}
	articles, sales, err := marshalSnapshot(b.Articles, b.Sales)
	if err != nil {
		return apperr.Storage("add backup", err)
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO backups (date, auto_backup, articles, sales, article_count, sale_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, toNanos(b.Date), boolToInt(b.AutoBackup), articles, sales, len(b.Articles), len(b.Sales))
	if err != nil {
		return apperr.Storage("add backup", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return apperr.Storage("add backup", fmt.Errorf("last insert id: %w", err))
	}
	b.ID = id
	return nil
}

// GetBackup returns the full backup with id or a NotFound error.
func (s *Store) GetBackup(ctx context.Context, id int64) (models.Backup, error) {
	db, err := s.conn("get backup")
	if err != nil {
		return models.Backup{}, err
	}

	var (
		b            models.Backup
		date         int64
		auto         int
		articlesJSON string
		salesJSON    string
	)
	err = db.QueryRowContext(ctx,
		"SELECT id, date, auto_backup, articles, sales FROM backups WHERE id = ?", id,
	).Scan(&b.ID, &date, &auto, &articlesJSON, &salesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Backup{}, apperr.NotFound("get backup", "no backup with id %d", id)
	}
	if err != nil {
		return models.Backup{}, apperr.Storage("get backup", err)
	}

	articles, sales, err := unmarshalSnapshot(articlesJSON, salesJSON)
	if err != nil {
		return models.Backup{}, apperr.Storage("get backup", err)
	}
	b.Date = fromNanos(date)
	b.AutoBackup = auto != 0
	b.Articles = articles
	b.Sales = sales
	return b, nil
}

// ListBackups returns summaries of every backup, newest first.
func (s *Store) ListBackups(ctx context.Context) ([]BackupSummary, error) {
	db, err := s.conn("list backups")
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, date, auto_backup, article_count, sale_count
		FROM backups
		ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, apperr.Storage("list backups", err)
	}
	defer rows.Close()

	summaries := []BackupSummary{}
	for rows.Next() {
		var (
			sum  BackupSummary
			date int64
			auto int
		)
		if err := rows.Scan(&sum.ID, &date, &auto, &sum.ArticleCount, &sum.SaleCount); err != nil {
			return nil, apperr.Storage("list backups", err)
		}
		sum.Date = fromNanos(date)
		sum.AutoBackup = auto != 0
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list backups", err)
	}
	return summaries, nil
}

// LatestBackupDate returns the date of the newest backup and whether one exists.
func (s *Store) LatestBackupDate(ctx context.Context) (time.Time, bool, error) {
	db, err := s.conn("latest backup date")
	if err != nil {
		return time.Time{}, false, err
	}
	var date sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(date) FROM backups").Scan(&date); err != nil {
		return time.Time{}, false, apperr.Storage("latest backup date", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}
	return fromNanos(date.Int64), true, nil
}

// CountBackups returns the number of stored backups.
func (s *Store) CountBackups(ctx context.Context) (int, error) {
	db, err := s.conn("count backups")
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM backups").Scan(&n); err != nil {
		return 0, apperr.Storage("count backups", err)
	}
	return n, nil
}

// DeleteBackup removes the backup with id. Absent ids are a no-op.
func (s *Store) DeleteBackup(ctx context.Context, id int64) error {
	db, err := s.conn("delete backup")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM backups WHERE id = ?", id); err != nil {
		return apperr.Storage("delete backup", err)
	}
	return nil
}

// DeleteBackups removes every backup in ids in one transaction.
func (s *Store) DeleteBackups(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	return s.withTx(ctx, "delete backups", func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM backups WHERE id = ?", id); err != nil {
				return fmt.Errorf("delete backup %d: %w", id, err)
			}
		}
		return nil
	})
}
