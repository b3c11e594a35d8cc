package exchange

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

// BackupFileName returns the export name for a backup taken at date.
func BackupFileName(date time.Time) string {
	return "bruch-backup-" + date.UTC().Format("2006-01-02") + ".json"
}

// WriteBackup writes b as an indented JSON document.
func WriteBackup(w io.Writer, b models.Backup) error {
	if b.Articles == nil {
		b.Articles = []models.Article{}
	}
	if b.Sales == nil {
		b.Sales = []models.Sale{}
	}
	return writeIndented(w, b)
}

// ReadBackup parses a backup document written by WriteBackup.
// Every article must be valid and sale ids must be unique; a sale without
// an id gets a fresh one on restore.
func ReadBackup(r io.Reader) (models.Backup, error) {
	var b models.Backup
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return models.Backup{}, apperr.Validation("read backup", "invalid backup file: %v", err)
	}
	if b.Articles == nil && b.Sales == nil {
		return models.Backup{}, apperr.Validation("read backup", "backup file has no articles or sales")
	}
	for i, a := range b.Articles {
		if err := a.Validate(); err != nil {
			return models.Backup{}, fmt.Errorf("backup article %d: %w", i+1, err)
		}
	}
	seen := make(map[int64]bool, len(b.Sales))
	for i, sale := range b.Sales {
		switch {
		case sale.ID < 0:
			return models.Backup{}, apperr.Validation("read backup", "sale %d has negative id %d", i+1, sale.ID)
		case sale.ID == 0:
			continue
		case seen[sale.ID]:
			return models.Backup{}, apperr.Validation("read backup", "sale id %d appears more than once", sale.ID)
		}
		seen[sale.ID] = true
	}
	if b.Articles == nil {
		b.Articles = []models.Article{}
	}
	if b.Sales == nil {
		b.Sales = []models.Sale{}
	}
	return b, nil
}
