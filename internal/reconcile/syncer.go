// Package reconcile keeps the local roster in step with the remote sheet.
//
// Every pull replaces the whole roster with the remote snapshot. Local
// writes are pushed first and confirmed by a pull shortly after; pushes are
// never acknowledged or retried.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"checkin/internal/metrics"
	"checkin/internal/roster"
	"checkin/internal/sheet"
)

var (
	// ErrPassInFlight is returned when a pass is requested while another
	// one is still outstanding. The request is dropped, not queued.
	ErrPassInFlight = errors.New("reconcile: pass already in flight")
	ErrRunning      = errors.New("reconcile: syncer already running")
)

// Remote is the authoritative roster.
type Remote interface {
	Fetch(ctx context.Context) ([]roster.Record, error)
	UpdateEntry(ctx context.Context, u sheet.Update) error
	ClearAll(ctx context.Context) error
}

// Options tune the syncer. Zero values take defaults.
type Options struct {
	Interval     time.Duration
	ConfirmDelay time.Duration
	PullTimeout  time.Duration
	PushTimeout  time.Duration
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 8 * time.Second
	}
	if o.ConfirmDelay <= 0 {
		o.ConfirmDelay = 1500 * time.Millisecond
	}
	if o.PullTimeout <= 0 {
		o.PullTimeout = 15 * time.Second
	}
	if o.PushTimeout <= 0 {
		o.PushTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// State is the coarse sync indicator shown to operators.
type State string

const (
	StateIdle   State = "idle"
	StateOK     State = "ok"
	StateFailed State = "failed"
)

// Status is a point-in-time view of the syncer.
type Status struct {
	State               State      `json:"state"`
	LastPullAt          *time.Time `json:"last_pull_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	Passes              int        `json:"passes"`
	Dropped             int        `json:"dropped"`
	Running             bool       `json:"running"`
}

// Syncer polls the remote on a fixed interval and forwards local writes.
type Syncer struct {
	store  *roster.Store
	remote Remote
	opts   Options

	inFlight atomic.Bool

	mu     sync.Mutex
	status Status
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a stopped syncer.
func New(store *roster.Store, remote Remote, opts Options) *Syncer {
	return &Syncer{
		store:  store,
		remote: remote,
		opts:   opts.withDefaults(),
		status: Status{State: StateIdle},
	}
}

// Start runs a pass immediately and then one per interval until Stop or
// ctx ends.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.status.Running = true

	s.wg.Add(1)
	go s.loop(s.ctx)
	return nil
}

// Stop cancels the poll loop and pending confirm pulls and waits for them.
// No pass starts after Stop returns.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.ctx = nil
	s.status.Running = false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Syncer) tick(ctx context.Context) {
	if err := s.Reconcile(ctx); err != nil && !errors.Is(err, ErrPassInFlight) {
		log.Printf("sync pass failed: %v", err)
	}
}

// Reconcile runs one pull. On failure the roster is left as it was.
func (s *Syncer) Reconcile(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.status.Dropped++
		s.mu.Unlock()
		metrics.SyncPasses.WithLabelValues("dropped").Inc()
		return ErrPassInFlight
	}
	defer s.inFlight.Store(false)

	pullCtx, cancel := context.WithTimeout(ctx, s.opts.PullTimeout)
	defer cancel()

	records, err := s.remote.Fetch(pullCtx)
	if err != nil {
		s.mu.Lock()
		s.status.Passes++
		s.status.State = StateFailed
		s.status.LastError = err.Error()
		s.status.ConsecutiveFailures++
		s.mu.Unlock()
		metrics.SyncPasses.WithLabelValues("failed").Inc()
		return fmt.Errorf("reconcile: pull: %w", err)
	}

	s.store.Replace(records)
	metrics.ObserveRoster(s.store.Counts())

	now := s.opts.Now().UTC()
	s.mu.Lock()
	s.status.Passes++
	s.status.State = StateOK
	s.status.LastError = ""
	s.status.ConsecutiveFailures = 0
	s.status.LastPullAt = &now
	s.mu.Unlock()
	metrics.SyncPasses.WithLabelValues("ok").Inc()
	return nil
}

// Status reports the current sync state.
func (s *Syncer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	if st.LastPullAt != nil {
		at := *st.LastPullAt
		st.LastPullAt = &at
	}
	return st
}

// PushAdmission forwards an entry to the remote and schedules a confirm
// pull. It returns immediately. Records renamed locally because their id was
// shared are addressed by the source id; the name tells the rows apart.
func (s *Syncer) PushAdmission(rec roster.Record) {
	u := sheet.Update{ID: rec.RemoteID(), Name: rec.Name, Status: rec.Status}
	if rec.EnteredAt != nil {
		u.Timestamp = *rec.EnteredAt
	}
	s.push("updateEntry", func(ctx context.Context) error {
		return s.remote.UpdateEntry(ctx, u)
	})
}

// PushClear asks the remote to reset every entry and schedules a confirm
// pull. The local roster is cleared by the caller.
func (s *Syncer) PushClear() {
	s.push("clearAll", s.remote.ClearAll)
}

// push issues the write and then, in the same goroutine, the confirm pull,
// so the write always goes out first. Without a running loop only the write
// is sent.
func (s *Syncer) push(action string, write func(context.Context) error) {
	s.mu.Lock()
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	} else {
		s.wg.Add(1)
	}
	running := s.ctx != nil
	s.mu.Unlock()

	go func() {
		if running {
			defer s.wg.Done()
		}

		pushCtx, cancel := context.WithTimeout(ctx, s.opts.PushTimeout)
		err := write(pushCtx)
		cancel()
		if err != nil {
			log.Printf("sync push %s failed: %v", action, err)
			metrics.SyncPushes.WithLabelValues(action, "failed").Inc()
		} else {
			metrics.SyncPushes.WithLabelValues(action, "sent").Inc()
		}

		if !running {
			return
		}
		timer := time.NewTimer(s.opts.ConfirmDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := s.Reconcile(ctx); err != nil && !errors.Is(err, ErrPassInFlight) && ctx.Err() == nil {
			log.Printf("sync confirm after %s failed: %v", action, err)
		}
	}()
}
