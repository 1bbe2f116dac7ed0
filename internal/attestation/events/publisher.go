// Package events delivers registry lifecycle notifications to off-chain
// consumers. Delivery is fire-and-forget: a sink failure never fails the
// operation that produced the event.
package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"trustlink/internal/attestation/models"
)

// Publisher hands an event to a sink. Publish is called from the store's
// commit hook and must not block.
type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
}

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event models.Event) error {
	args := []any{
		"log_type", "event",
		"kind", string(event.Kind),
		"key", event.Key.String(),
		"attestation_id", event.AttestationID.String(),
	}
	if event.Kind == models.EventCreated {
		args = append(args, "issuer", event.Issuer.String(), "claim_type", string(event.ClaimType))
		if event.Timestamp != nil {
			args = append(args, "timestamp", event.Timestamp.Unix())
		}
	}
	p.logger.InfoContext(ctx, "attestation_"+string(event.Kind), args...)
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event models.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory, in order.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, event models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
