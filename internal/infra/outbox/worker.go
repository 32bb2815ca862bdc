package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker polls a Store and publishes due events. Failed deliveries are
// rescheduled along Backoff; the last step repeats.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Clock       func() time.Time
	Logger      *slog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				return err
			}
		}
	}
}

// drain publishes every due event, stopping at the first empty claim.
func (w *Worker) drain(ctx context.Context) error {
	for {
		done, err := w.processOnce(ctx)
		if err != nil || done {
			return err
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	pending, err := w.Store.Claim(ctx, w.ID, w.now())
	if err != nil {
		return true, err
	}
	if pending == nil {
		return true, nil
	}
	payload, headers, err := Envelope(pending.EventRecord, w.Source)
	if err == nil {
		err = w.Producer.Publish(ctx, Topic(w.TopicPrefix, pending.Name), pending.AggregateID, payload, headers)
	}
	if err != nil {
		w.logger().Warn("outbox delivery failed", "event_id", pending.ID, "event", pending.Name, "attempts", pending.Attempts+1, "error", err)
		return false, w.Store.MarkFailed(ctx, pending.ID, w.nextRetry(pending.Attempts), err.Error())
	}
	return false, w.Store.MarkSent(ctx, pending.ID, w.now())
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return w.now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return w.now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return w.now().Add(5 * time.Second)
}

func (w *Worker) now() time.Time {
	if w.Clock != nil {
		return w.Clock().UTC()
	}
	return time.Now().UTC()
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
