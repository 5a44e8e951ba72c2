package match

import (
	"strings"

	"checkin/internal/codec"
	"checkin/internal/roster"
)

// Strategy names, in default evaluation order.
const (
	StrategyExact    = "exact"
	StrategyFold     = "fold"
	StrategyDigits   = "digits"
	StrategyContains = "contains"
	StrategyName     = "name"
)

// DefaultStrategies returns the standard fallback chain.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: StrategyExact, Match: matchExact},
		{Name: StrategyFold, Match: matchFold},
		{Name: StrategyDigits, Match: matchDigits},
		{Name: StrategyContains, Match: matchContains},
		{Name: StrategyName, ByName: true, Match: matchName},
	}
}

func firstIndex(records []roster.Record, pred func(roster.Record) bool) (int, bool) {
	for i, r := range records {
		if pred(r) {
			return i, true
		}
	}
	return -1, false
}

func matchExact(p codec.Payload, _ string, records []roster.Record) (int, bool) {
	if p.ID == "" {
		return -1, false
	}
	return firstIndex(records, func(r roster.Record) bool {
		return strings.TrimSpace(r.ID) == p.ID
	})
}

func matchFold(p codec.Payload, _ string, records []roster.Record) (int, bool) {
	if p.ID == "" {
		return -1, false
	}
	want := fold(p.ID)
	return firstIndex(records, func(r roster.Record) bool {
		return fold(r.ID) == want
	})
}

// matchDigits handles scanners and encoders that mangle punctuation.
func matchDigits(p codec.Payload, _ string, records []roster.Record) (int, bool) {
	digits := onlyDigits(p.ID)
	if digits == "" {
		return -1, false
	}
	return firstIndex(records, func(r roster.Record) bool {
		return strings.TrimSpace(r.ID) == digits
	})
}

// matchContains accepts a record whose id appears anywhere in the raw text.
// A short id can match an unrelated payload by coincidence.
func matchContains(_ codec.Payload, raw string, records []roster.Record) (int, bool) {
	return firstIndex(records, func(r roster.Record) bool {
		id := strings.TrimSpace(r.ID)
		return id != "" && strings.Contains(raw, id)
	})
}

func matchName(p codec.Payload, _ string, records []roster.Record) (int, bool) {
	if !p.HasName {
		return -1, false
	}
	return firstIndex(records, func(r roster.Record) bool {
		return r.Name != "" && sameName(r.Name, p.Name)
	})
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
