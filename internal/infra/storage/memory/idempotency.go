package memory

import (
	"context"
	"sync"
	"time"

	"venuehire/internal/app/middleware"
)

// IdempotencyStore stores results in memory. Expiry runs on the store's own
// clock from the moment of Save, never from the record's OccurredAt, which
// the command pipeline stamps with its own clock. A zero TTL keeps records
// forever.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]idempotencyEntry
	ttl   time.Duration
	now   func() time.Time
}

type idempotencyEntry struct {
	record   middleware.IdempotencyRecord
	storedAt time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]idempotencyEntry), ttl: ttl, now: time.Now}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.items[key]
	if !ok || s.expired(entry, s.now()) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return entry.record, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = idempotencyEntry{record: rec, storedAt: s.now()}
	return nil
}

// Sweep drops expired records and returns how many were removed.
func (s *IdempotencyStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for key, entry := range s.items {
		if s.expired(entry, now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

func (s *IdempotencyStore) expired(entry idempotencyEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.storedAt) > s.ttl
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
