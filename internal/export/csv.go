// Package export serializes the roster for download.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"checkin/internal/roster"
)

// Filename is the suggested download name.
const Filename = "entry_log.csv"

// Header is the first CSV row.
var Header = []string{"ID", "Name", "Year", "Status", "Entered At"}

// Options select which records are written.
type Options struct {
	EnteredOnly bool
}

// WriteCSV writes records in roster order. Entry times are RFC 3339 in UTC.
func WriteCSV(w io.Writer, records []roster.Record, opts Options) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range records {
		if opts.EnteredOnly && !rec.HasEntered() {
			continue
		}
		enteredAt := ""
		if rec.EnteredAt != nil {
			enteredAt = rec.EnteredAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{rec.ID, rec.Name, rec.Group, string(rec.Status), enteredAt}); err != nil {
			return n, err
		}
		n++
	}
	cw.Flush()
	return n, cw.Error()
}
