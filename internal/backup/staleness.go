package backup

import (
	"fmt"
	"time"
)

// Staleness describes the age of the newest backup for the status line.
// ok is false when no backup exists.
func Staleness(now, last time.Time, ok bool) string {
	if !ok {
		return "Noch kein Backup"
	}
	minutes := int(now.Sub(last) / time.Minute)
	if minutes < 1 {
		return "Gerade eben"
	}
	if minutes < 60 {
		return fmt.Sprintf("Vor %d Min.", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("Vor %d Std.", hours)
	}
	days := hours / 24
	if days == 1 {
		return "Vor 1 Tag"
	}
	return fmt.Sprintf("Vor %d Tagen", days)
}
