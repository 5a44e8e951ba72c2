// Package badge renders printable attendee badges with an embedded QR code.
package badge

import (
	"context"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"checkin/internal/metrics"
)

// Encoder turns text into a PNG image.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]byte, error)
}

// QREncoder produces QR codes as PNG.
type QREncoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewQREncoder returns a 512px encoder with high error correction, which
// survives creased or partially covered prints.
func NewQREncoder() QREncoder {
	return QREncoder{Size: 512, Level: qrcode.High}
}

// Encode implements Encoder.
func (e QREncoder) Encode(ctx context.Context, text string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := e.Size
	if size <= 0 {
		size = 512
	}
	png, err := qrcode.Encode(text, e.Level, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}

// RetryingEncoder retries a fixed number of times with a fixed pause.
type RetryingEncoder struct {
	Next     Encoder
	Attempts int
	Backoff  time.Duration
}

// Retrying wraps next with attempts tries and backoff between them.
func Retrying(next Encoder, attempts int, backoff time.Duration) RetryingEncoder {
	if attempts <= 0 {
		attempts = 3
	}
	return RetryingEncoder{Next: next, Attempts: attempts, Backoff: backoff}
}

// Encode implements Encoder. The last error is returned once every attempt
// has failed.
func (e RetryingEncoder) Encode(ctx context.Context, text string) ([]byte, error) {
	attempts := e.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			metrics.BadgeEncodes.WithLabelValues("retry").Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.Backoff):
			}
		}
		png, err := e.Next.Encode(ctx, text)
		if err == nil {
			metrics.BadgeEncodes.WithLabelValues("ok").Inc()
			return png, nil
		}
		lastErr = err
	}
	metrics.BadgeEncodes.WithLabelValues("failed").Inc()
	return nil, fmt.Errorf("encode failed after %d attempts: %w", attempts, lastErr)
}
