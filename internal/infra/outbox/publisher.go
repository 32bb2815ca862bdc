package outbox

import (
	"context"
	"log/slog"

	appoutbox "venuehire/internal/app/outbox"
)

// DirectPublisher sends records straight to a Producer. The memory outbox uses
// it after commit when there is no durable store to poll.
type DirectPublisher struct {
	Producer    Producer
	TopicPrefix string
	Source      string
}

func (p DirectPublisher) Publish(ctx context.Context, rec appoutbox.EventRecord) error {
	if p.Producer == nil {
		return ErrWorkerNotConfigured
	}
	payload, headers, err := Envelope(rec, p.Source)
	if err != nil {
		return err
	}
	return p.Producer.Publish(ctx, Topic(p.TopicPrefix, rec.Name), rec.AggregateID, payload, headers)
}

// LogProducer writes events to the log instead of a broker.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(_ context.Context, topic string, key string, payload []byte, _ map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event published", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}
