package sheet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/roster"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"status":"success","data":[
			{"ID":2024001,"Name":"Alice","Year":2024,"Status":"Entered","Timestamp":"2026-10-16T09:00:00Z"},
			{"ID":"","Name":"Bob","Year":"2025","Status":""}
		]}`)
	}))
	defer srv.Close()

	records, err := New(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2024001", records[0].ID)
	assert.Equal(t, "2024", records[0].Group)
	assert.Equal(t, roster.Entered, records[0].Status)
	require.NotNil(t, records[0].EnteredAt)
	assert.Equal(t, time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC), *records[0].EnteredAt)

	assert.Equal(t, "", records[1].ID)
	assert.Equal(t, roster.NotEntered, records[1].Status)
}

func TestFetch_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","message":"sheet locked"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background())
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "sheet locked", remote.Message)
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetch_NotConfigured(t *testing.T) {
	_, err := New("").Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, New("").ClearAll(context.Background()), ErrNotConfigured)
}

func TestWrites(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []map[string]string
		ctyp []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		got = append(got, body)
		ctyp = append(ctyp, r.Header.Get("Content-Type"))
		mu.Unlock()
		// opaque acknowledgement
		_, _ = io.WriteString(w, "<html>ok</html>")
	}))
	defer srv.Close()

	c := New(srv.URL)
	ts := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	require.NoError(t, c.UpdateEntry(context.Background(), Update{ID: "A1", Name: "Alice", Status: roster.Entered, Timestamp: ts}))
	require.NoError(t, c.ClearAll(context.Background()))

	require.Len(t, got, 2)
	assert.Equal(t, map[string]string{
		"action":    "updateEntry",
		"id":        "A1",
		"name":      "Alice",
		"status":    "Entered",
		"timestamp": "2026-10-16T09:00:00Z",
	}, got[0])
	assert.Equal(t, map[string]string{"action": "clearAll"}, got[1])
	assert.Equal(t, "text/plain;charset=utf-8", ctyp[0])
}

func TestWrites_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := New(srv.URL).UpdateEntry(context.Background(), Update{ID: "A1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updateEntry")
}
