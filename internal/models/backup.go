package models

import "time"

// Backup is an immutable full-dataset snapshot.
type Backup struct {
	ID         int64     `json:"id"`
	Date       time.Time `json:"date"`
	Articles   []Article `json:"articles"`
	Sales      []Sale    `json:"sales"`
	AutoBackup bool      `json:"autoBackup"`
}
