package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/roster"
)

func fixture() []roster.Record {
	at := time.Date(2026, 10, 16, 9, 15, 0, 0, time.FixedZone("IST", 5*3600+1800))
	return []roster.Record{
		{ID: "A1", Name: "Alice", Group: "2024", Status: roster.Entered, EnteredAt: &at},
		{ID: "B2", Name: "Bob, Jr.", Group: "2025", Status: roster.NotEntered},
		{ID: "AT0001E240", Name: `Chloe "CJ" Jones`, Status: roster.NotEntered},
	}
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		rows int
	}{
		{name: "all", rows: 3},
		{name: "entered_only", opts: Options{EnteredOnly: true}, rows: 1},
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := WriteCSV(&buf, fixture(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, n)
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestWriteCSV_EmptyRoster(t *testing.T) {
	var buf bytes.Buffer
	n, err := WriteCSV(&buf, nil, Options{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, "ID,Name,Year,Status,Entered At\n", buf.String())
}
