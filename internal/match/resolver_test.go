package match

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/codec"
	"checkin/internal/roster"
)

var people = []roster.Record{
	{ID: "A1", Name: "Alice"},
	{ID: "B2", Name: "Bob"},
	{ID: "12345", Name: "Dana Whitfield"},
}

func TestResolve_Chain(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		kind     Kind
		strategy string
		id       string
	}{
		{"exact", "A1", Matched, StrategyExact, "A1"},
		{"exact trimmed", "  B2\n", Matched, StrategyExact, "B2"},
		{"fold", "a1", Matched, StrategyFold, "A1"},
		{"digits", "ID:12-345", Matched, StrategyDigits, "12345"},
		{"contains", "TICKET-B2-X", Matched, StrategyContains, "B2"},
		{"name fallback", "ZZ9|bob", Matched, StrategyName, "B2"},
		{"identifier with matching name", "A1|alice", Matched, StrategyExact, "A1"},
		{"mismatch", "A1|Carol", Mismatch, StrategyExact, "A1"},
		{"not found", "Q7", NotFound, "", ""},
		{"unknown name", "Q7|Carol", NotFound, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(tc.payload, people)
			assert.Equal(t, tc.kind, res.Kind)
			assert.Equal(t, tc.strategy, res.Strategy)
			assert.Equal(t, tc.id, res.Record.ID)
		})
	}
}

func TestResolve_Empty(t *testing.T) {
	res := Resolve(" \t", people)
	assert.Equal(t, EmptyInput, res.Kind)
	assert.False(t, res.Found())
}

func TestResolve_ExactWinsRegardlessOfOrder(t *testing.T) {
	recs := []roster.Record{{ID: "a1", Name: "Lower"}, {ID: "A1", Name: "Upper"}}
	res := Resolve("A1", recs)
	assert.Equal(t, StrategyExact, res.Strategy)
	assert.Equal(t, "Upper", res.Record.Name)

	reversed := []roster.Record{recs[1], recs[0]}
	res = Resolve("A1", reversed)
	assert.Equal(t, "Upper", res.Record.Name)
}

func TestResolve_FirstInRosterOrderWithinStrategy(t *testing.T) {
	recs := []roster.Record{{ID: "x9", Name: "First"}, {ID: "X9", Name: "Second"}}
	res := Resolve("X9 ", []roster.Record{recs[0]})
	assert.Equal(t, StrategyFold, res.Strategy)

	res = Resolve("x", recs)
	assert.Equal(t, NotFound, res.Kind)

	res = Resolve("ticket x9 X9", recs)
	assert.Equal(t, StrategyContains, res.Strategy)
	assert.Equal(t, "First", res.Record.Name)
}

func TestResolve_ContainsCanMatchByCoincidence(t *testing.T) {
	res := Resolve("X100", []roster.Record{{ID: "1", Name: "One"}})
	assert.Equal(t, Matched, res.Kind)
	assert.Equal(t, StrategyContains, res.Strategy)
}

func TestResolve_MismatchIgnoresCaseAndSpacing(t *testing.T) {
	res := Resolve("12345|  dana   WHITFIELD ", people)
	assert.Equal(t, Matched, res.Kind)
}

func TestResolve_DerivedPayload(t *testing.T) {
	id := codec.DeriveIdentifier("Erin Moss")
	recs := append([]roster.Record{{ID: id, Name: "Erin Moss"}}, people...)
	text, err := codec.EncodePayload(id, "Erin Moss")
	require.NoError(t, err)

	res := Resolve(text, recs)
	assert.Equal(t, Matched, res.Kind)
	assert.Equal(t, StrategyExact, res.Strategy)
	assert.Equal(t, id, res.Record.ID)
}

func TestResolver_WithStrategy(t *testing.T) {
	reversed := Strategy{
		Name: "reversed",
		Match: func(p codec.Payload, _ string, records []roster.Record) (int, bool) {
			r := []rune(p.ID)
			for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
				r[i], r[j] = r[j], r[i]
			}
			for i, rec := range records {
				if rec.ID == string(r) {
					return i, true
				}
			}
			return -1, false
		},
	}
	base := NewResolver()
	extended := base.WithStrategy(reversed)

	assert.Equal(t, NotFound, base.Resolve("2B", people).Kind)
	res := extended.Resolve("2B", people)
	assert.Equal(t, "reversed", res.Strategy)
	assert.Equal(t, "B2", res.Record.ID)
	assert.Equal(t, "exact,fold,digits,contains,name,reversed", strings.Join(extended.Strategies(), ","))
	assert.Len(t, base.Strategies(), 5)
}
