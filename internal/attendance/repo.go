package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrStationRequired is returned for writes without a station id.
var ErrStationRequired = errors.New("station id required")

// Repository persists stations, refresh tokens and the scan audit log. The
// SQL sticks to the subset shared by Postgres and SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stations (
		station_id TEXT PRIMARY KEY,
		label      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         TEXT PRIMARY KEY,
		station_id TEXT NOT NULL,
		token      TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS scan_events (
		id          TEXT PRIMARY KEY,
		station_id  TEXT NOT NULL,
		attendee_id TEXT NOT NULL DEFAULT '',
		payload     TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		strategy    TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMP NOT NULL,
		created_at  TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_events_attendee ON scan_events (attendee_id)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_events_occurred ON scan_events (occurred_at)`,
}

// Migrate creates the tables if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertStation ensures a station record exists.
func (r *Repository) UpsertStation(ctx context.Context, stationID, label string) error {
	if stationID == "" {
		return ErrStationRequired
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stations (station_id, label, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (station_id) DO NOTHING
	`, stationID, label, time.Now().UTC())
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, stationID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, station_id, token, expires_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), stationID, token, expiresAt.UTC())
	return err
}

// RevokeRefreshToken marks a token revoked.
func (r *Repository) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE token = $1`, token)
	return err
}

// RefreshTokenActive reports whether token is known, unrevoked and unexpired.
func (r *Repository) RefreshTokenActive(ctx context.Context, token string) (bool, error) {
	var (
		expiresAt time.Time
		revoked   bool
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT expires_at, revoked FROM refresh_tokens WHERE token = $1
	`, token).Scan(&expiresAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !revoked && time.Now().Before(expiresAt), nil
}

// InsertEvent writes a scan event.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	evt.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_events (id, station_id, attendee_id, payload, outcome, strategy, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, evt.ID, evt.StationID, evt.AttendeeID, evt.Payload, string(evt.Outcome), evt.Strategy, evt.OccurredAt.UTC(), evt.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

const eventColumns = `id, station_id, attendee_id, payload, outcome, strategy, occurred_at, created_at`

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var (
		evt     Event
		outcome string
	)
	err := row.Scan(&evt.ID, &evt.StationID, &evt.AttendeeID, &evt.Payload, &outcome, &evt.Strategy, &evt.OccurredAt, &evt.CreatedAt)
	evt.Outcome = Outcome(outcome)
	return evt, err
}

// GetEvent returns a single event by id.
func (r *Repository) GetEvent(ctx context.Context, id string) (Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM scan_events WHERE id = $1`, id)
	return scanEvent(row)
}

// EventFilter narrows ListEvents. Zero values mean no filter.
type EventFilter struct {
	StationID  string
	AttendeeID string
	Outcome    Outcome
	Limit      int
	Offset     int
}

// ListEvents returns events, newest first.
func (r *Repository) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	var (
		args    []any
		clauses []string
	)
	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, column+" = $"+strconv.Itoa(len(args)))
	}
	if f.StationID != "" {
		add("station_id", f.StationID)
	}
	if f.AttendeeID != "" {
		add("attendee_id", f.AttendeeID)
	}
	if f.Outcome != "" {
		add("outcome", string(f.Outcome))
	}

	query := `SELECT ` + eventColumns + ` FROM scan_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}
