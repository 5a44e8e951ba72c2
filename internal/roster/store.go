package roster

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"checkin/internal/codec"
)

// ErrNotFound is returned when no record carries the requested id.
var ErrNotFound = errors.New("attendee not found")

// Store owns the roster. Every mutation goes through its methods; callers
// only ever see copies.
type Store struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
	version uint64
	now     func() time.Time

	// warned is the warning set last logged; polls that reproduce it stay quiet
	warned string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: map[string]int{}, now: time.Now}
}

// Load replaces the roster with a fresh set of records. Every record starts
// NotEntered regardless of what the source said.
func (s *Store) Load(records []Record) []Warning {
	fresh := make([]Record, len(records))
	for i, r := range records {
		r.Status = NotEntered
		r.EnteredAt = nil
		fresh[i] = r
	}
	return s.replace(fresh)
}

// Replace swaps in a remote snapshot, keeping its entry statuses.
func (s *Store) Replace(records []Record) []Warning {
	now := s.now()
	snap := make([]Record, len(records))
	for i, r := range records {
		r = r.clone()
		if r.Status != Entered {
			r.Status = NotEntered
			r.EnteredAt = nil
		} else if r.EnteredAt == nil {
			at := now
			r.EnteredAt = &at
		}
		snap[i] = r
	}
	return s.replace(snap)
}

func (s *Store) replace(records []Record) []Warning {
	records, warnings := normalize(records)
	index := make(map[string]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	msgs := make([]string, len(warnings))
	for i, w := range warnings {
		msgs[i] = w.Message
	}
	key := strings.Join(msgs, "\n")

	s.mu.Lock()
	s.records = records
	s.index = index
	s.version++
	changed := key != s.warned
	s.warned = key
	s.mu.Unlock()

	if changed {
		for _, m := range msgs {
			log.Printf("roster warning: %s", m)
		}
	}
	return warnings
}

// normalize trims ids, derives missing ones and keeps ids unique. Later
// holders of an already used id get an ordinal suffix.
func normalize(records []Record) ([]Record, []Warning) {
	var (
		warnings []Warning
		order    []string
		rows     = make(map[string][]int, len(records))
		used     = make(map[string]bool, len(records))
		renamed  = make(map[string]bool)
		out      = make([]Record, 0, len(records))
	)
	for i, r := range records {
		r.ID = strings.TrimSpace(r.ID)
		r.Name = strings.TrimSpace(r.Name)
		r.Group = strings.TrimSpace(r.Group)
		if r.ID == "" && r.Name == "" {
			warnings = append(warnings, Warning{
				Kind:    WarnEmptyRow,
				Rows:    []int{i + 1},
				Message: fmt.Sprintf("row %d has neither id nor name, skipped", i+1),
			})
			continue
		}
		if r.ID == "" {
			r.ID = codec.DeriveIdentifier(r.Name)
		}
		if r.Name == "" {
			warnings = append(warnings, Warning{
				Kind:    WarnMissingName,
				ID:      r.ID,
				Rows:    []int{i + 1},
				Message: fmt.Sprintf("row %d (%s) has no name", i+1, r.ID),
			})
		}
		base := r.ID
		if r.SourceID == "" {
			r.SourceID = base
		}
		if _, ok := rows[base]; !ok {
			order = append(order, base)
		}
		rows[base] = append(rows[base], i+1)
		for n := len(rows[base]); used[r.ID]; n++ {
			r.ID = fmt.Sprintf("%s-%d", base, n)
			renamed[base] = true
		}
		used[r.ID] = true
		out = append(out, r)
	}
	for _, base := range order {
		if !renamed[base] {
			continue
		}
		warnings = append(warnings, Warning{
			Kind:    WarnDuplicateID,
			ID:      base,
			Rows:    rows[base],
			Message: fmt.Sprintf("id %s shared by rows %v; later rows renamed with a numeric suffix", base, rows[base]),
		})
	}
	return out, warnings
}

// Admit applies the entry transition to the record with the given id.
func (s *Store) Admit(id string, now time.Time) (Outcome, Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[strings.TrimSpace(id)]
	if !ok {
		return "", Record{}, ErrNotFound
	}
	outcome := Admit(&s.records[i], now)
	if outcome == Admitted {
		s.version++
	}
	return outcome, s.records[i].clone(), nil
}

// Clear returns every attendee to NotEntered.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		s.records[i].Status = NotEntered
		s.records[i].EnteredAt = nil
	}
	s.version++
}

// Snapshot returns a copy of the roster in load order.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[strings.TrimSpace(id)]
	if !ok {
		return Record{}, false
	}
	return s.records[i].clone(), true
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases on every mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Counts returns the roster size and how many attendees have entered.
func (s *Store) Counts() (total, entered int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.Status == Entered {
			entered++
		}
	}
	return len(s.records), entered
}
