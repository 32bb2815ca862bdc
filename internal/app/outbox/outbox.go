package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"venuehire/internal/domain/shared/events"
)

// EventRecord is a serialised domain event waiting for publication.
type EventRecord struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Payload       []byte            `json:"payload"`
	OccurredAt    time.Time         `json:"occurred_at"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// Outbox buffers records for the current unit of work. Flush runs after the
// unit commits.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:            idGen(),
		Name:          ev.EventName(),
		Payload:       payload,
		OccurredAt:    ev.OccurredAt().UTC(),
		AggregateID:   ev.AggregateID(),
		AggregateType: AggregateType(ev.EventName()),
		Headers:       map[string]string{},
	}, nil
}

// AggregateType is the event name prefix: "booking.confirmed" -> "booking".
func AggregateType(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

type batchKey struct{}

// WithBatch tags ctx with a fresh batch id. Outboxes that buffer in process group
// records by batch so one command's Flush never publishes another's events.
func WithBatch(ctx context.Context) context.Context {
	return context.WithValue(ctx, batchKey{}, uuid.NewString())
}

// BatchFrom returns the batch id set by WithBatch, or "".
func BatchFrom(ctx context.Context) string {
	id, _ := ctx.Value(batchKey{}).(string)
	return id
}

// Discarder is implemented by outboxes that can drop a failed command's records.
type Discarder interface {
	Discard(ctx context.Context)
}
