package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"venuehire/internal/app/uow"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 25 * time.Millisecond
)

// releaseScript deletes the lock only while it still carries our token, so an
// expired holder cannot release a lock someone else has since taken.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SlotLocker implements uow.SlotLocker with SET NX PX. The TTL caps how long a
// crashed process can keep a slot blocked.
type SlotLocker struct {
	client goredis.Cmdable
	TTL    time.Duration
	Retry  time.Duration
	Logger *slog.Logger
}

func NewSlotLocker(client goredis.Cmdable, ttl time.Duration, logger *slog.Logger) *SlotLocker {
	return &SlotLocker{client: client, TTL: ttl, Logger: logger}
}

// Lock polls until the key is free or ctx is done; a done ctx reports
// uow.ErrSlotBusy.
func (l *SlotLocker) Lock(ctx context.Context, key string) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	retry := l.Retry
	if retry <= 0 {
		retry = defaultLockRetry
	}
	name := lockKey(key)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, name, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", uow.ErrSlotBusy, key)
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %s", uow.ErrSlotBusy, key)
		case <-timer.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{name}, token).Err(); err != nil && l.Logger != nil {
			l.Logger.Warn("slot lock release failed", "key", key, "error", err)
		}
	}, nil
}

func lockKey(key string) string {
	return "lock:" + key
}

var _ uow.SlotLocker = (*SlotLocker)(nil)
