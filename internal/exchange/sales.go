package exchange

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/bruch/internal/models"
)

// isoMillis matches the millisecond ISO-8601 timestamps of earlier exports.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// WriteSalesJSON writes sales as an indented JSON array.
func WriteSalesJSON(w io.Writer, sales []models.Sale) error {
	if sales == nil {
		sales = []models.Sale{}
	}
	return writeIndented(w, sales)
}

// WriteSalesCSV writes the bookkeeping table
// id;datum;personalnummer;positionen;summe;bezahlt.
// Line items are summarized as "2x Name, 1x Other".
func WriteSalesCSV(w io.Writer, sales []models.Sale) error {
	lines := make([]string, 0, len(sales)+1)
	lines = append(lines, "id;datum;personalnummer;positionen;summe;bezahlt")
	for _, s := range sales {
		positions := make([]string, len(s.Items))
		for i, item := range s.Items {
			positions[i] = fmt.Sprintf("%dx %s", item.Quantity, item.Name)
		}
		paid := "Nein"
		if s.Paid {
			paid = "Ja"
		}
		id := ""
		if s.ID != 0 {
			id = strconv.FormatInt(s.ID, 10)
		}
		lines = append(lines, strings.Join([]string{
			id,
			s.Date.UTC().Format(isoMillis),
			s.PersonnelNumber,
			quote(strings.Join(positions, ", ")),
			s.Total.String(),
			paid,
		}, ";"))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write sales csv: %w", err)
	}
	return nil
}

// FormatDate renders t in the German short form used in listings.
func FormatDate(t time.Time) string {
	return t.Local().Format("02.01.2006, 15:04")
}
