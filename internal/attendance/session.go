package attendance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"
)

// ErrSessionRunning is returned when Start is called on a live session.
var ErrSessionRunning = errors.New("scan session already running")

// Decoder yields decoded payloads until ctx is cancelled or the source ends.
type Decoder interface {
	Stream(ctx context.Context) (<-chan string, error)
}

// Session feeds a Decoder into a Service at a capped rate.
type Session struct {
	svc       *Service
	stationID string
	rate      *Cooldown
	onResult  func(ScanResult)
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession creates a session that accepts at most one decode per
// minInterval and reports each processed scan to onResult.
//
// onResult runs on the dispatch goroutine. It must not call Stop, which
// waits for that goroutine; use Cancel instead.
func NewSession(svc *Service, stationID string, minInterval time.Duration, onResult func(ScanResult)) *Session {
	if minInterval <= 0 {
		minInterval = time.Second
	}
	if onResult == nil {
		onResult = func(ScanResult) {}
	}
	return &Session{
		svc:       svc,
		stationID: stationID,
		rate:      NewCooldown(minInterval),
		onResult:  onResult,
		now:       time.Now,
	}
}

// Start begins consuming dec. It returns once the stream is open.
func (s *Session) Start(ctx context.Context, dec Decoder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrSessionRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	payloads, err := dec.Stream(ctx)
	if err != nil {
		cancel()
		return err
	}
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go s.run(ctx, payloads, done)
	return nil
}

func (s *Session) run(ctx context.Context, payloads <-chan string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-payloads:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if !s.rate.Allow(s.now()) {
				continue
			}
			s.onResult(s.svc.Scan(ctx, s.stationID, raw))
		}
	}
}

// Stop cancels the session and waits for the dispatch loop to exit. No
// payload is dispatched after Stop returns.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Cancel ends the session without waiting for the dispatch loop, so it is
// safe to call from onResult. No payload is dispatched after the current
// callback returns.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the session ends on its own (source exhausted) or is
// stopped.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// LineDecoder reads one payload per line, as keyboard-wedge scanners type
// them.
type LineDecoder struct {
	R io.Reader
}

// Stream implements Decoder.
func (d LineDecoder) Stream(ctx context.Context) (<-chan string, error) {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(d.R)
		for sc.Scan() {
			select {
			case out <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			log.Printf("scanner input failed: %v", err)
		}
	}()
	return out, nil
}

// ChanDecoder adapts an existing channel, mainly for tests and embedding.
type ChanDecoder <-chan string

// Stream implements Decoder.
func (d ChanDecoder) Stream(context.Context) (<-chan string, error) {
	return d, nil
}
