// Package match maps scanned badge text onto a roster record.
package match

import (
	"strings"

	"golang.org/x/text/cases"

	"checkin/internal/codec"
	"checkin/internal/roster"
)

// Kind classifies a resolution.
type Kind string

const (
	Matched    Kind = "matched"
	NotFound   Kind = "not_found"
	Mismatch   Kind = "mismatch"
	EmptyInput Kind = "empty_input"
)

// Strategy is one step of the fallback chain. It returns the index of the
// first record it accepts.
type Strategy struct {
	Name string
	// ByName strategies only run when no identifier strategy matched and
	// the payload carries a name.
	ByName bool
	Match  func(p codec.Payload, raw string, records []roster.Record) (int, bool)
}

// Resolution is the answer to a scan lookup.
type Resolution struct {
	Kind     Kind          `json:"kind"`
	Strategy string        `json:"strategy,omitempty"`
	Record   roster.Record `json:"record"`
	Payload  codec.Payload `json:"-"`
}

// Found reports whether a record is attached.
func (r Resolution) Found() bool {
	return r.Kind == Matched || r.Kind == Mismatch
}

// Resolver tries its strategies in order; the first hit wins.
type Resolver struct {
	strategies []Strategy
}

// NewResolver returns a resolver with the default chain: exact, fold,
// digits, contains, name.
func NewResolver() *Resolver {
	return &Resolver{strategies: DefaultStrategies()}
}

// WithStrategy returns a copy of r with s appended to the chain.
func (r *Resolver) WithStrategy(s Strategy) *Resolver {
	chain := make([]Strategy, len(r.strategies), len(r.strategies)+1)
	copy(chain, r.strategies)
	return &Resolver{strategies: append(chain, s)}
}

// Strategies lists the chain in evaluation order.
func (r *Resolver) Strategies() []string {
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name
	}
	return names
}

// Resolve finds the record raw refers to. When several records satisfy the
// winning strategy, the first in roster order is returned.
func (r *Resolver) Resolve(raw string, records []roster.Record) Resolution {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Resolution{Kind: EmptyInput}
	}
	p := codec.DecodePayload(raw)

	for _, s := range r.strategies {
		if s.ByName {
			continue
		}
		if i, ok := s.Match(p, raw, records); ok {
			rec := records[i]
			if p.HasName && !sameName(p.Name, rec.Name) {
				return Resolution{Kind: Mismatch, Strategy: s.Name, Record: rec, Payload: p}
			}
			return Resolution{Kind: Matched, Strategy: s.Name, Record: rec, Payload: p}
		}
	}
	if p.HasName {
		for _, s := range r.strategies {
			if !s.ByName {
				continue
			}
			if i, ok := s.Match(p, raw, records); ok {
				return Resolution{Kind: Matched, Strategy: s.Name, Record: records[i], Payload: p}
			}
		}
	}
	return Resolution{Kind: NotFound, Payload: p}
}

// Resolve runs the default chain.
func Resolve(raw string, records []roster.Record) Resolution {
	return NewResolver().Resolve(raw, records)
}

// fold builds a fresh Caser per call; Casers carry state and must not be
// shared across goroutines.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func sameName(a, b string) bool {
	return fold(codec.NormalizeName(a)) == fold(codec.NormalizeName(b))
}
