package backup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTicker is a Ticker driven by the test.
type fakeTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

func newFakeTicker() *fakeTicker {
	return &fakeTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { close(f.stopped) }

type stubPrefs struct {
	enabled bool
	err     error
}

func (p stubPrefs) AutoBackupEnabled(context.Context) (bool, error) {
	return p.enabled, p.err
}

func countBackups(t *testing.T, m *Manager) int {
	t.Helper()
	list, err := m.List(context.Background())
	require.NoError(t, err)
	return len(list)
}

func TestScheduler_TickCreatesAutoBackup(t *testing.T) {
	ctx := context.Background()
	st, m, _ := setup(t)

	ticker := newFakeTicker()
	var gotInterval time.Duration
	s := NewScheduler(m, st,
		WithInterval(5*time.Minute),
		WithTickerFactory(func(d time.Duration) Ticker {
			gotInterval = d
			return ticker
		}),
	)

	s.Start(ctx)
	assert.True(t, s.Running())
	assert.Equal(t, 5*time.Minute, gotInterval)

	ticker.ch <- start
	ticker.ch <- start
	require.Eventually(t, func() bool { return countBackups(t, m) == 2 }, time.Second, 10*time.Millisecond)

	list, err := m.List(ctx)
	require.NoError(t, err)
	assert.True(t, list[0].AutoBackup)

	s.Stop()
	assert.False(t, s.Running())
	select {
	case <-ticker.stopped:
	default:
		t.Fatal("ticker not stopped")
	}

	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	st, m, _ := setup(t)

	calls := 0
	s := NewScheduler(m, st, WithTickerFactory(func(time.Duration) Ticker {
		calls++
		return newFakeTicker()
	}))
	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	assert.Equal(t, 1, calls)
}

func TestScheduler_ContextCancelEndsLoop(t *testing.T) {
	st, m, _ := setup(t)

	ticker := newFakeTicker()
	s := NewScheduler(m, st, WithTickerFactory(func(time.Duration) Ticker { return ticker }))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on cancel")
	}
	s.Stop()
}

func TestScheduler_DisabledPreference(t *testing.T) {
	ctx := context.Background()
	st, m, _ := setup(t)
	require.NoError(t, st.SetAutoBackupEnabled(ctx, false))

	s := NewScheduler(m, st)
	assert.False(t, s.OnForeground(ctx))
	assert.False(t, s.OnTeardown(ctx))
	assert.Zero(t, countBackups(t, m))

	require.NoError(t, st.SetAutoBackupEnabled(ctx, true))
	assert.True(t, s.OnForeground(ctx))
	assert.Equal(t, 1, countBackups(t, m))
}

func TestScheduler_PreferenceErrorIsSwallowed(t *testing.T) {
	ctx := context.Background()
	_, m, _ := setup(t)

	s := NewScheduler(m, stubPrefs{err: errors.New("settings unreadable")})
	assert.False(t, s.OnTeardown(ctx))
	assert.Zero(t, countBackups(t, m))
}

func TestScheduler_OnForegroundRespectsInterval(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)
	s := NewScheduler(m, stubPrefs{enabled: true}, WithInterval(10*time.Minute))

	// No backup yet: always back up.
	assert.True(t, s.OnForeground(ctx))

	clock.Advance(9 * time.Minute)
	assert.False(t, s.OnForeground(ctx))

	clock.Advance(time.Minute)
	assert.True(t, s.OnForeground(ctx))
	assert.Equal(t, 2, countBackups(t, m))
}

func TestScheduler_OnTeardownDebounce(t *testing.T) {
	ctx := context.Background()
	_, m, clock := setup(t)
	s := NewScheduler(m, stubPrefs{enabled: true}, WithDebounce(time.Minute))

	_, err := m.CreateActionBackup(ctx)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	assert.False(t, s.OnTeardown(ctx))

	clock.Advance(30 * time.Second)
	assert.True(t, s.OnTeardown(ctx))
	assert.Equal(t, 2, countBackups(t, m))
}

func TestScheduler_BackupFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	st, m, _ := setup(t)
	require.NoError(t, st.Close())

	s := NewScheduler(m, stubPrefs{enabled: true})
	assert.False(t, s.OnTeardown(ctx))
}
