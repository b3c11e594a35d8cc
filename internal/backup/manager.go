package backup

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/bruch/internal/models"
	"github.com/roach88/bruch/internal/store"
)

// DefaultKeep is the number of backups kept after each create.
const DefaultKeep = 10

// Clock provides the wall time used to stamp backups.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Option configures a Manager.
type Option func(*Manager)

// WithKeep sets how many backups survive retention. Values below 1 are ignored.
func WithKeep(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.keep = n
		}
	}
}

// WithClock sets the clock used to stamp backups.
func WithClock(c Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager owns the backup key space.
type Manager struct {
	store  *store.Store
	keep   int
	clock  Clock
	logger *slog.Logger

	// mu serializes create+prune and restore.
	mu sync.Mutex
}

// NewManager creates a Manager over st.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		keep:   DefaultKeep,
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Keep returns the retention limit.
func (m *Manager) Keep() int {
	return m.keep
}

// Clock returns the manager's clock.
func (m *Manager) Clock() Clock {
	return m.clock
}

// CreateBackup snapshots all articles and sales and returns the new backup id.
// auto marks the backup as created by the scheduler; it does not change
// retention.
func (m *Manager) CreateBackup(ctx context.Context, auto bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(ctx, auto)
}

// CreateActionBackup snapshots the dataset after a user action.
// It is CreateBackup(ctx, false).
func (m *Manager) CreateActionBackup(ctx context.Context) (int64, error) {
	return m.CreateBackup(ctx, false)
}

func (m *Manager) createLocked(ctx context.Context, auto bool) (int64, error) {
	articles, err := m.store.ListArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot articles: %w", err)
	}
	sales, err := m.store.ListSales(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot sales: %w", err)
	}

	b := models.Backup{
		Date:       m.clock.Now(),
		Articles:   articles,
		Sales:      sales,
		AutoBackup: auto,
	}
	if err := m.store.AddBackup(ctx, &b); err != nil {
		return 0, err
	}

	pruned, err := m.pruneLocked(ctx)
	if err != nil {
		return b.ID, err
	}

	m.logger.Debug("backup created",
		"id", b.ID,
		"auto", auto,
		"articles", len(articles),
		"sales", len(sales),
		"pruned", pruned,
	)
	return b.ID, nil
}

// pruneLocked deletes every backup beyond the newest m.keep.
func (m *Manager) pruneLocked(ctx context.Context) (int, error) {
	all, err := m.store.ListBackups(ctx)
	if err != nil {
		return 0, fmt.Errorf("prune backups: %w", err)
	}
	if len(all) <= m.keep {
		return 0, nil
	}

	stale := all[m.keep:]
	ids := make([]int64, len(stale))
	for i, b := range stale {
		ids[i] = b.ID
	}
	if err := m.store.DeleteBackups(ctx, ids); err != nil {
		return 0, fmt.Errorf("prune backups: %w", err)
	}
	return len(ids), nil
}

// ImportBackup stores b as a new backup record and applies retention.
// The record gets a fresh id and is stamped with the current time so a
// freshly imported file is never the first one pruned.
func (m *Manager) ImportBackup(ctx context.Context, b models.Backup) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	imported := models.Backup{
		Date:       m.clock.Now(),
		Articles:   b.Articles,
		Sales:      b.Sales,
		AutoBackup: false,
	}
	if err := m.store.AddBackup(ctx, &imported); err != nil {
		return 0, err
	}
	if _, err := m.pruneLocked(ctx); err != nil {
		return imported.ID, err
	}
	m.logger.Info("backup imported",
		"id", imported.ID,
		"articles", len(imported.Articles),
		"sales", len(imported.Sales),
	)
	return imported.ID, nil
}

// RestoreResult reports what a restore wrote.
type RestoreResult struct {
	Articles       int   `json:"articles"`
	Sales          int   `json:"sales"`
	SafetyBackupID int64 `json:"safetyBackupId"`
}

// Restore replaces all articles and sales with the contents of backup id.
//
// A NotFound error is returned before anything is written if id does not
// resolve. Otherwise a safety backup of the current state is created first.
func (m *Manager) Restore(ctx context.Context, id int64) (RestoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.store.GetBackup(ctx, id)
	if err != nil {
		return RestoreResult{}, err
	}

	safetyID, err := m.createLocked(ctx, false)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("safety backup: %w", err)
	}

	if err := m.store.ReplaceArticles(ctx, b.Articles); err != nil {
		return RestoreResult{SafetyBackupID: safetyID}, fmt.Errorf("restore articles: %w", err)
	}
	if err := m.store.ReplaceSales(ctx, b.Sales); err != nil {
		return RestoreResult{SafetyBackupID: safetyID}, fmt.Errorf("restore sales: %w", err)
	}

	result := RestoreResult{
		Articles:       len(b.Articles),
		Sales:          len(b.Sales),
		SafetyBackupID: safetyID,
	}
	m.logger.Info("backup restored",
		"id", id,
		"articles", result.Articles,
		"sales", result.Sales,
		"safety_backup", safetyID,
	)
	return result, nil
}

// DeleteBackup removes backup id. Absent ids are a no-op.
func (m *Manager) DeleteBackup(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.DeleteBackup(ctx, id)
}

// List returns summaries of every backup, newest first.
func (m *Manager) List(ctx context.Context) ([]store.BackupSummary, error) {
	return m.store.ListBackups(ctx)
}

// Get returns the full backup id or a NotFound error.
func (m *Manager) Get(ctx context.Context, id int64) (models.Backup, error) {
	return m.store.GetBackup(ctx, id)
}

// LastBackupTime returns the date of the newest backup and whether one exists.
func (m *Manager) LastBackupTime(ctx context.Context) (time.Time, bool, error) {
	return m.store.LatestBackupDate(ctx)
}
