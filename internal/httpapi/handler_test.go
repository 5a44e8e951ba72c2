package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin/internal/attendance"
	"checkin/internal/auth"
	"checkin/internal/badge"
	"checkin/internal/cloudinary"
	"checkin/internal/reconcile"
	"checkin/internal/roster"
)

type memStations struct {
	mu       sync.Mutex
	stations map[string]string
	tokens   map[string]bool
}

func (m *memStations) UpsertStation(_ context.Context, id, label string) error {
	if id == "" {
		return attendance.ErrStationRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stations[id] = label
	return nil
}

func (m *memStations) SaveRefreshToken(_ context.Context, _, token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = true
	return nil
}

func (m *memStations) RevokeRefreshToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = false
	return nil
}

func (m *memStations) RefreshTokenActive(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[token], nil
}

type memEvents struct {
	last attendance.EventFilter
}

func (m *memEvents) ListEvents(_ context.Context, f attendance.EventFilter) ([]attendance.Event, error) {
	m.last = f
	return []attendance.Event{{ID: "e1", StationID: f.StationID, Outcome: attendance.Admitted}}, nil
}

type fakeSync struct {
	err    error
	status reconcile.Status
}

func (f *fakeSync) Reconcile(context.Context) error { return f.err }
func (f *fakeSync) Status() reconcile.Status      { return f.status }

type fakePublisher struct {
	data []byte
}

func (f *fakePublisher) Upload(_ context.Context, data []byte, filename, publicID, resourceType string) (*cloudinary.UploadResult, error) {
	f.data = data
	return &cloudinary.UploadResult{PublicID: "badges/" + publicID, SecureURL: "https://cdn.test/" + filename, Bytes: len(data)}, nil
}

type fixture struct {
	router   *gin.Engine
	handler  *Handler
	store    *roster.Store
	stations *memStations
	token    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := roster.NewStore()
	st.Load([]roster.Record{
		{ID: "A1", Name: "Alice", Group: "2024"},
		{ID: "B2", Name: "Bob", Group: "2025"},
	})
	stations := &memStations{stations: map[string]string{}, tokens: map[string]bool{}}
	h := &Handler{
		Service:  attendance.NewService(st, 3*time.Second),
		Stations: stations,
		Events:   &memEvents{},
		Badges:   badge.NewRenderer(badge.NewQREncoder(), "Test Event"),
		Tokens: TokenConfig{
			Issuer:     "checkin-test",
			SigningKey: "test-key",
			AccessTTL:  time.Minute,
			RefreshTTL: time.Hour,
		},
		Probes: map[string]Probe{"db": func(context.Context) bool { return true }},
	}
	r := gin.New()
	h.Register(r)

	pair, err := auth.Issue("gate-1", auth.RoleStation, "checkin-test", "test-key", time.Minute, time.Hour)
	require.NoError(t, err)
	return &fixture{router: r, handler: h, store: st, stations: stations, token: pair.AccessToken}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["db"])

	f.handler.Probes["redis"] = func(context.Context) bool { return false }
	w = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRegisterAndRefresh(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/stations/register", gin.H{"station_id": "gate-9", "label": "North"})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	refresh := body["refresh_token"].(string)
	assert.Equal(t, "North", f.stations.stations["gate-9"])

	w = f.do(t, http.MethodPost, "/v1/stations/refresh", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gate-9", decode(t, w)["station_id"])

	// rotated: the old refresh token is spent
	w = f.do(t, http.MethodPost, "/v1/stations/refresh", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/v1/stations/register", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t)
	f.token = "nope"
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/v1/roster", nil).Code)
}

func TestScanFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": "A1"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "admitted", body["outcome"])
	assert.Equal(t, "Alice entry successful!", body["message"])

	w = f.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": "A1"})
	assert.Equal(t, "ignored", decode(t, w)["outcome"])

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/v1/scans/resume", nil).Code)
	w = f.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": "A1"})
	assert.Equal(t, "already_entered", decode(t, w)["outcome"])

	f.handler.Service.ResumeScanning("gate-1")
	w = f.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": "B2|Carol"})
	assert.Equal(t, "mismatch", decode(t, w)["outcome"])

	w = f.do(t, http.MethodPost, "/v1/scans", gin.H{"payload": ""})
	assert.Equal(t, "empty_input", decode(t, w)["outcome"])

	_, entered := f.store.Counts()
	assert.Equal(t, 1, entered)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/v1/entries", nil).Code)
	_, entered = f.store.Counts()
	assert.Zero(t, entered)
}

func TestListRoster_Search(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/roster?q=bo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(2), body["total"])
	records := body["records"].([]any)
	require.Len(t, records, 1)
	assert.Equal(t, "B2", records[0].(map[string]any)["id"])
}

func TestUploadRoster(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "guests.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("ID,Name,Year\nX1,Xena,2026\n,Yuri,2026\nX1,Xavier,2026\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/roster", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["loaded"])
	assert.Len(t, body["warnings"], 1)
	_, ok := f.store.Get("X1-2")
	assert.True(t, ok)
}

func TestPullAndStatus(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/roster/pull", nil).Code)
	assert.Equal(t, "disabled", decode(t, f.do(t, http.MethodGet, "/v1/sync/status", nil))["state"])

	remote := &fakeSync{status: reconcile.Status{State: reconcile.StateOK, Passes: 4}}
	f.handler.Sync = remote
	w := f.do(t, http.MethodPost, "/v1/roster/pull", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	remote.err = reconcile.ErrPassInFlight
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/roster/pull", nil).Code)

	remote.err = errors.New("reconcile: pull: offline")
	remote.status.State = reconcile.StateFailed
	w = f.do(t, http.MethodPost, "/v1/roster/pull", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = f.do(t, http.MethodGet, "/v1/sync/status", nil)
	assert.Equal(t, "failed", decode(t, w)["state"])
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.store.Admit("B2", time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/v1/export.csv?entered=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID,Name,Year,Status,Entered At\nB2,Bob,2025,Entered,2026-10-16T09:00:00Z\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "entry_log.csv")
}

func TestBadges(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/badges.pdf?ids=A1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Badges-Rendered"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodGet, "/v1/badges.pdf?ids=ZZ", nil).Code)

	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/v1/badges/publish", nil).Code)
	pub := &fakePublisher{}
	f.handler.Publisher = pub
	w = f.do(t, http.MethodPost, "/v1/badges/publish?public_id=night", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.test/badges.pdf", decode(t, w)["url"])
	assert.True(t, bytes.HasPrefix(pub.data, []byte("%PDF-")))
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/events?station_id=gate-1&outcome=admitted&limit=5&offset=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	events := f.handler.Events.(*memEvents)
	assert.Equal(t, attendance.EventFilter{StationID: "gate-1", Outcome: attendance.Admitted, Limit: 5, Offset: 10}, events.last)
	assert.Len(t, decode(t, w)["events"], 1)
}
