package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "venuehire/internal/app/outbox"
)

// Publisher receives records once their command has committed.
type Publisher interface {
	Publish(ctx context.Context, record appoutbox.EventRecord) error
}

// Outbox buffers records per command batch and hands them to Publisher on
// Flush. Without a Publisher flushed records are retained for inspection.
type Outbox struct {
	mu        sync.Mutex
	pending   map[string][]appoutbox.EventRecord
	published []appoutbox.EventRecord
	publisher Publisher
}

func NewOutbox(publisher Publisher) *Outbox {
	return &Outbox{pending: make(map[string][]appoutbox.EventRecord), publisher: publisher}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	batch := appoutbox.BatchFrom(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending[batch] = append(o.pending[batch], record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	batch := appoutbox.BatchFrom(ctx)
	o.mu.Lock()
	records := o.pending[batch]
	delete(o.pending, batch)
	if o.publisher == nil {
		o.published = append(o.published, records...)
	}
	o.mu.Unlock()

	if o.publisher == nil {
		return nil
	}
	var errs []error
	for _, rec := range records {
		if err := o.publisher.Publish(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Outbox) Discard(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, appoutbox.BatchFrom(ctx))
}

// Published returns flushed records kept when no Publisher is configured.
func (o *Outbox) Published() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]appoutbox.EventRecord(nil), o.published...)
}

var (
	_ appoutbox.Outbox    = (*Outbox)(nil)
	_ appoutbox.Discarder = (*Outbox)(nil)
)
