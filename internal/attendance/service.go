package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"checkin/internal/match"
	"checkin/internal/metrics"
	"checkin/internal/queue"
	"checkin/internal/roster"
)

// MessageType tags check-in events on the queue.
const MessageType = "checkin"

// Pusher forwards local writes to the remote roster.
type Pusher interface {
	PushAdmission(rec roster.Record)
	PushClear()
}

// Service turns scans into admissions: cooldown, lookup, state transition,
// then push and audit.
type Service struct {
	store    *roster.Store
	resolver *match.Resolver
	cooldown *Cooldowns
	pusher   Pusher
	events   queue.Queue
	now      func() time.Time
}

// NewService creates a service over store. Each station gets its own scan
// cooldown of the given length.
func NewService(store *roster.Store, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = 3 * time.Second
	}
	return &Service{
		store:    store,
		resolver: match.NewResolver(),
		cooldown: NewCooldowns(cooldown),
		now:      time.Now,
	}
}

// WithPusher sets where admissions and clears are forwarded.
func (s *Service) WithPusher(p Pusher) *Service {
	s.pusher = p
	return s
}

// WithQueue sets where audit events are published.
func (s *Service) WithQueue(q queue.Queue) *Service {
	s.events = q
	return s
}

// WithResolver replaces the default match chain.
func (s *Service) WithResolver(r *match.Resolver) *Service {
	s.resolver = r
	return s
}

// Store returns the roster the service admits into.
func (s *Service) Store() *roster.Store {
	return s.store
}

// Scan processes one decoded payload from a station.
func (s *Service) Scan(ctx context.Context, stationID, raw string) ScanResult {
	now := s.now().UTC()
	res := s.scan(stationID, raw, now)
	metrics.Scans.WithLabelValues(string(res.Outcome)).Inc()
	if res.Outcome == EmptyInput || res.Outcome == Ignored {
		return res
	}

	evt := Event{
		ID:         uuid.NewString(),
		StationID:  stationID,
		Payload:    raw,
		Outcome:    res.Outcome,
		Strategy:   res.Strategy,
		OccurredAt: now,
	}
	if res.Record != nil {
		evt.AttendeeID = res.Record.ID
	}
	res.EventID = evt.ID
	s.publish(ctx, evt)

	if res.Outcome == Admitted {
		metrics.ObserveRoster(s.store.Counts())
		if s.pusher != nil {
			s.pusher.PushAdmission(*res.Record)
		}
	}
	return res
}

func (s *Service) scan(stationID, raw string, now time.Time) ScanResult {
	if strings.TrimSpace(raw) == "" {
		return ScanResult{Outcome: EmptyInput, Message: "Empty scan"}
	}
	gate := s.cooldown.For(stationID)
	if !gate.Allow(now) {
		return ScanResult{
			Outcome: Ignored,
			Message: "Scanner cooling down",
			RetryIn: gate.Remaining(now),
		}
	}

	res := s.resolver.Resolve(raw, s.store.Snapshot())
	switch res.Kind {
	case match.NotFound:
		return ScanResult{Outcome: NotFound, Message: "Invalid QR!"}
	case match.Mismatch:
		rec := res.Record
		return ScanResult{
			Outcome:  Mismatch,
			Strategy: res.Strategy,
			Record:   &rec,
			Message:  fmt.Sprintf("Badge name %q does not match %s (%s)", res.Payload.Name, rec.Name, rec.ID),
		}
	}
	metrics.MatchStrategy.WithLabelValues(res.Strategy).Inc()

	outcome, rec, err := s.store.Admit(res.Record.ID, now)
	if errors.Is(err, roster.ErrNotFound) {
		// roster replaced between lookup and admit
		return ScanResult{Outcome: NotFound, Message: "Invalid QR!"}
	}
	out := ScanResult{Strategy: res.Strategy, Record: &rec}
	switch outcome {
	case roster.Admitted:
		out.Outcome = Admitted
		out.Message = fmt.Sprintf("%s entry successful!", rec.Name)
	default:
		out.Outcome = AlreadyEntered
		out.Message = fmt.Sprintf("%s already entered", rec.Name)
	}
	return out
}

func (s *Service) publish(ctx context.Context, evt Event) {
	if s.events == nil {
		return
	}
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("encode event %s failed: %v", evt.ID, err)
		return
	}
	if err := s.events.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// ResumeScanning reopens the cooldown of one station so its next scan is
// processed at once. Other stations keep their windows.
func (s *Service) ResumeScanning(stationID string) {
	s.cooldown.Reset(stationID)
}

// ClearEntries resets every attendee to not entered, locally and remotely.
func (s *Service) ClearEntries() {
	s.store.Clear()
	metrics.ObserveRoster(s.store.Counts())
	if s.pusher != nil {
		s.pusher.PushClear()
	}
}

// LoadRoster replaces the roster from a local source.
func (s *Service) LoadRoster(records []roster.Record) []roster.Warning {
	warnings := s.store.Load(records)
	metrics.ObserveRoster(s.store.Counts())
	return warnings
}
