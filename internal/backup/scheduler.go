package backup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultInterval is the period between automatic backups.
	DefaultInterval = 10 * time.Minute

	// DefaultDebounce is the minimum age of the newest backup before a
	// teardown backup is taken.
	DefaultDebounce = time.Minute
)

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker is the TickerFactory backed by time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Preferences reports whether automatic backups are enabled.
// *store.Store satisfies it.
type Preferences interface {
	AutoBackupEnabled(ctx context.Context) (bool, error)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the ticker period and the foreground staleness threshold.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDebounce sets the minimum backup age for teardown backups.
func WithDebounce(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithTickerFactory replaces the ticker implementation.
func WithTickerFactory(f TickerFactory) SchedulerOption {
	return func(s *Scheduler) {
		if f != nil {
			s.newTicker = f
		}
	}
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler triggers automatic backups.
type Scheduler struct {
	manager   *Manager
	prefs     Preferences
	interval  time.Duration
	debounce  time.Duration
	newTicker TickerFactory
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(m *Manager, prefs Preferences, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		manager:   m,
		prefs:     prefs,
		interval:  DefaultInterval,
		debounce:  DefaultDebounce,
		newTicker: NewTimeTicker,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins periodic backups. Calling Start on a running scheduler is a no-op.
// The loop ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ticker := s.newTicker(s.interval)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				s.trigger(ctx, "interval")
			}
		}
	}()

	s.logger.Debug("backup scheduler started", "interval", s.interval)
}

// Stop ends periodic backups and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Debug("backup scheduler stopped")
}

// Running reports whether the ticker loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// OnForeground backs up when no backup exists or the newest one is at
// least one interval old. It reports whether a backup was created.
func (s *Scheduler) OnForeground(ctx context.Context) bool {
	if !s.olderThan(ctx, s.interval) {
		return false
	}
	return s.trigger(ctx, "foreground")
}

// OnTeardown backs up when no backup exists or the newest one is at least
// the debounce old. It reports whether a backup was created.
func (s *Scheduler) OnTeardown(ctx context.Context) bool {
	if !s.olderThan(ctx, s.debounce) {
		return false
	}
	return s.trigger(ctx, "teardown")
}

func (s *Scheduler) olderThan(ctx context.Context, d time.Duration) bool {
	last, ok, err := s.manager.LastBackupTime(ctx)
	if err != nil {
		s.logger.Warn("auto backup skipped", "error", err)
		return false
	}
	if !ok {
		return true
	}
	return s.manager.Clock().Now().Sub(last) >= d
}

// trigger creates an automatic backup if the preference allows it.
// Errors are logged and swallowed.
func (s *Scheduler) trigger(ctx context.Context, reason string) bool {
	enabled, err := s.prefs.AutoBackupEnabled(ctx)
	if err != nil {
		s.logger.Warn("auto backup skipped", "reason", reason, "error", err)
		return false
	}
	if !enabled {
		s.logger.Debug("auto backup disabled", "reason", reason)
		return false
	}

	id, err := s.manager.CreateBackup(ctx, true)
	if err != nil {
		s.logger.Error("auto backup failed", "reason", reason, "error", err)
		return false
	}
	s.logger.Info("auto backup created", "reason", reason, "id", id)
	return true
}
