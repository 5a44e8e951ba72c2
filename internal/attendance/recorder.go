package attendance

import (
	"context"
	"encoding/json"
	"log"

	"checkin/internal/queue"
)

// EventWriter stores audit events.
type EventWriter interface {
	InsertEvent(ctx context.Context, evt Event) (Event, error)
}

// Recorder drains check-in messages from a queue into the audit log.
type Recorder struct {
	writer EventWriter
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w EventWriter) *Recorder {
	return &Recorder{writer: w}
}

// Run consumes q until ctx is cancelled. Bad messages and failed inserts are
// logged and skipped.
func (r *Recorder) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		r.Handle(ctx, msg)
	}
	return nil
}

// Start runs the recorder in the background. The returned stop function
// cancels it and blocks until the last insert has returned, so the writer can
// be closed right after.
func (r *Recorder) Start(ctx context.Context, q queue.Queue) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := r.Run(ctx, q); err != nil {
			log.Printf("recorder stopped: %v", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// Handle records a single message. It reports whether an event was written.
func (r *Recorder) Handle(ctx context.Context, msg queue.Message) bool {
	if msg.Type != MessageType {
		return false
	}
	var evt Event
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		log.Printf("decode check-in event failed: %v", err)
		return false
	}
	if _, err := r.writer.InsertEvent(ctx, evt); err != nil {
		log.Printf("record event %s failed: %v", evt.ID, err)
		return false
	}
	return true
}
