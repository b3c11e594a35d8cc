package pos

import (
	"strings"
	"sync"
	"time"

	"github.com/roach88/bruch/internal/backup"
)

// DefaultScanWindow suppresses repeated reads of the same code.
const DefaultScanWindow = 3 * time.Second

// ScanFilter drops a scan that repeats the previous code within the window.
// Scanners often report one barcode several times in a row.
type ScanFilter struct {
	clock  backup.Clock
	window time.Duration

	mu   sync.Mutex
	last string
	at   time.Time
}

// NewScanFilter creates a filter. A nil clock uses the system clock.
func NewScanFilter(clock backup.Clock, window time.Duration) *ScanFilter {
	if clock == nil {
		clock = backup.SystemClock()
	}
	return &ScanFilter{clock: clock, window: window}
}

// Accept returns the trimmed code and whether it should be processed.
// An accepted scan restarts the window; a dropped one does not.
func (f *ScanFilter) Accept(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	if code == f.last && now.Sub(f.at) < f.window {
		return code, false
	}
	f.last = code
	f.at = now
	return code, true
}
