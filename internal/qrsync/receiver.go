package qrsync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/importer"
	"github.com/roach88/bruch/internal/models"
)

// ScanResult is the outcome of one scan.
// Imported is non-nil once the transfer completed and was merged.
type ScanResult struct {
	Status   Status           `json:"status"`
	Imported *importer.Result `json:"imported,omitempty"`
}

// Receiver turns a stream of scanned QR texts into a merge import.
type Receiver struct {
	importer *importer.Engine
	logger   *slog.Logger

	mu  sync.Mutex
	asm *Assembler
}

// NewReceiver creates a Receiver importing through eng.
func NewReceiver(eng *importer.Engine, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{importer: eng, logger: logger, asm: NewAssembler()}
}

// Scan feeds one QR text into the current transfer.
//
// Until every envelope has arrived Scan returns the partial status. The
// scan that completes the transfer decodes the catalog and merges it into
// the store, then resets the receiver for the next transfer. A payload that
// is not an article array also resets the receiver. When the import itself
// fails the envelopes are kept, so re-scanning any envelope retries it.
func (r *Receiver) Scan(ctx context.Context, text string) (ScanResult, error) {
	env, err := DecodeEnvelope(text)
	if err != nil {
		return ScanResult{Status: r.Status()}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.asm.Add(env)
	if err != nil {
		return ScanResult{Status: st}, err
	}
	if !st.Complete() {
		r.logger.Debug("sync chunk received", "chunk", env.Chunk, "received", st.Received, "total", st.Total)
		return ScanResult{Status: st}, nil
	}

	payload, err := r.asm.Payload()
	if err != nil {
		return ScanResult{Status: st}, err
	}

	var articles []models.Article
	if err := json.Unmarshal([]byte(payload), &articles); err != nil {
		r.asm.Reset()
		return ScanResult{Status: st}, apperr.Validation("sync receive", "payload is not an article list: %v", err)
	}

	res, err := r.importer.Import(ctx, articles, importer.Merge)
	if err != nil {
		return ScanResult{Status: st}, err
	}
	r.asm.Reset()

	r.logger.Info("sync transfer imported", "chunks", st.Total, "added", res.Added, "updated", res.Updated)
	return ScanResult{Status: st, Imported: &res}, nil
}

// Status reports the progress of the current transfer.
func (r *Receiver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.asm.Status()
}

// Reset abandons the current transfer.
func (r *Receiver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asm.Reset()
}
