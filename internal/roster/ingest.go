package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Row is one tabular roster row keyed by column header.
type Row map[string]string

// Format names a roster file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for roster files of an unsupported type.
var ErrUnknownFormat = errors.New("unknown roster format")

var (
	idColumns      = []string{"id", "student id", "student_id", "code"}
	nameColumns    = []string{"name", "full name", "full_name"}
	groupColumns   = []string{"year", "group", "class", "cohort"}
	statusColumns  = []string{"status", "entry_status", "entry status"}
	enteredColumns = []string{"timestamp", "enteredat", "entered_at", "entered at"}
)

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

// lookup returns the first non-empty cell among the aliases, matching
// headers case-insensitively.
func (r Row) lookup(aliases []string) string {
	for _, alias := range aliases {
		for k, v := range r {
			if strings.EqualFold(strings.TrimSpace(k), alias) {
				if v = strings.TrimSpace(v); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

// FromRows converts tabular rows into records. Missing identifiers are left
// empty here and derived by the store.
func FromRows(rows []Row) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			ID:     row.lookup(idColumns),
			Name:   row.lookup(nameColumns),
			Group:  row.lookup(groupColumns),
			Status: ParseStatus(row.lookup(statusColumns)),
		}
		if rec.Status == Entered {
			if ts := row.lookup(enteredColumns); ts != "" {
				if t, ok := parseTime(ts); ok {
					rec.EnteredAt = &t
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

// FormatFromPath picks a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// ReadFile reads a roster file, choosing the decoder by extension.
func ReadFile(path string) ([]Record, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return Read(f, format)
}

// Read decodes roster rows from r.
func Read(r io.Reader, format Format) ([]Record, error) {
	var (
		rows []Row
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatYAML, FormatJSON:
		rows, err = readYAML(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

func readCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var rows []Row
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		row := make(Row, len(header))
		for i, h := range header {
			if i < len(cells) {
				row[h] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readYAML(r io.Reader) ([]Row, error) {
	var raw []map[string]any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	rows := make([]Row, 0, len(raw))
	for _, m := range raw {
		row := make(Row, len(m))
		for k, v := range m {
			if v == nil {
				continue
			}
			row[k] = cellString(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}
