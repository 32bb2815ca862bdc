package outbox

import (
	"context"
	"time"

	appoutbox "venuehire/internal/app/outbox"
)

const (
	StateNew     = "NEW"
	StateClaimed = "CLAIMED"
	StateSent    = "SENT"
	StateFailed  = "FAILED"
)

// Pending is a stored event claimed for delivery.
type Pending struct {
	appoutbox.EventRecord
	Attempts int
}

// Store is the durable side of the outbox that the worker drains. Claim
// returns nil, nil when nothing is due.
type Store interface {
	Claim(ctx context.Context, workerID string, now time.Time) (*Pending, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}
