package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/bruch/internal/apperr"
)

//go:embed schema.cue
var schemaCUE string

// FieldError is one schema violation.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// view is the shape checked by schema.cue.
type view struct {
	Database string      `json:"database"`
	LogLevel string      `json:"logLevel"`
	Backup   backupView  `json:"backup"`
	Sync     syncView    `json:"sync"`
	Scanner  scannerView `json:"scanner"`
}

type backupView struct {
	Keep       int   `json:"keep"`
	IntervalMs int64 `json:"intervalMs"`
	DebounceMs int64 `json:"debounceMs"`
	Auto       bool  `json:"auto"`
}

type syncView struct {
	ChunkSize int `json:"chunkSize"`
}

type scannerView struct {
	WindowMs int64 `json:"windowMs"`
}

func (c Config) view() view {
	return view{
		Database: c.Database,
		LogLevel: c.LogLevel,
		Backup: backupView{
			Keep:       c.Backup.Keep,
			IntervalMs: c.Backup.Interval.Milliseconds(),
			DebounceMs: c.Backup.Debounce.Milliseconds(),
			Auto:       c.Backup.Auto,
		},
		Sync:    syncView{ChunkSize: c.Sync.ChunkSize},
		Scanner: scannerView{WindowMs: c.Scanner.Window.Milliseconds()},
	}
}

// Validate checks c against the embedded CUE schema.
// All violations are reported in one Validation error.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	val := schema.Unify(ctx.Encode(c.view()))
	err := val.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	fields := fieldErrors(err)
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Error()
	}
	return apperr.Validation("validate config", "%s", strings.Join(msgs, "; "))
}

// fieldErrors flattens a CUE error into per-field messages, sorted by field.
func fieldErrors(err error) []FieldError {
	var out []FieldError
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "config"
		}
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		key := field + "\x00" + msg
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, FieldError{Field: field, Message: msg})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
