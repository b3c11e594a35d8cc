package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/pos"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]int{"added": 3}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "nicht gefunden", map[string]string{"ean": "123"})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "nicht gefunden", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Error("VALIDATION", "ungültige Daten", "price is empty")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Fehler [VALIDATION]")
	assert.Contains(t, buf.String(), "ungültige Daten")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("VALIDATION", "ungültige Daten", "price is empty"))
	assert.Contains(t, buf.String(), "Details: price is empty")
}

func TestOutputFormatter_Render(t *testing.T) {
	text := func(w io.Writer) { fmt.Fprintln(w, "3 Artikel") }

	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, formatter.Render(map[string]int{"count": 3}, text))
	assert.Equal(t, "3 Artikel\n", buf.String())

	buf.Reset()
	formatter.Format = "json"
	require.NoError(t, formatter.Render(map[string]int{"count": 3}, text))
	assert.JSONEq(t, `{"status":"ok","data":{"count":3}}`, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Reading %s", "artikel.csv")

			assert.Empty(t, out.String(), "verbose output must not corrupt JSON")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Reading artikel.csv")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestWrapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
		wantJSON string
	}{
		{"not found", apperr.NotFound("get article", "no article with ean 1"), ExitFailure, "nicht gefunden", "NOT_FOUND"},
		{"validation", apperr.Validation("checkout", "cart is empty"), ExitCommandError, "ungültige Daten", "VALIDATION"},
		{"storage", apperr.Storage("add sale", errors.New("disk full")), ExitFailure, "Speicherfehler", "STORAGE"},
		{"wrapped storage", fmt.Errorf("restore sales: %w", apperr.Storage("replace", errors.New("io"))), ExitFailure, "Speicherfehler", "STORAGE"},
		{"action backup", &pos.ActionBackupError{Action: "sale", Err: apperr.Storage("add backup", errors.New("io"))}, ExitFailure, "Backup fehlgeschlagen", "BACKUP_FAILED"},
		{"plain", errors.New("boom"), ExitFailure, "Fehler", "FAILURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapDomainError(tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantJSON, errorCode(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestWrapDomainErrorKeepsExitError(t *testing.T) {
	orig := NewExitError(ExitCommandError, "refusing")
	assert.Same(t, orig, wrapDomainError(orig))
	assert.NoError(t, wrapDomainError(nil))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", errors.New("x"))))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("outer: %w", NewExitError(ExitFailure, "inner"))))
}
