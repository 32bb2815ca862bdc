package queries

import (
	"context"
	"fmt"
	"sort"
)

type askFunc func(ctx context.Context, q Query) (any, error)

// InMemoryBus routes queries by Key. Like the command bus it is filled once
// at startup and read concurrently afterwards.
type InMemoryBus struct {
	routes map[string]askFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]askFunc)}
}

func (b *InMemoryBus) route(key string, fn askFunc) {
	if key == "" {
		panic("queries: empty key registration")
	}
	if _, taken := b.routes[key]; taken {
		panic(fmt.Sprintf("queries: %q registered twice", key))
	}
	b.routes[key] = fn
}

func (b *InMemoryBus) Keys() []string {
	keys := make([]string, 0, len(b.routes))
	for k := range b.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *InMemoryBus) Ask(ctx context.Context, q Query) (any, error) {
	fn, ok := b.routes[q.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, q.Key())
	}
	return fn(ctx, q)
}

func RegisterHandler[Q Query, R any](bus *InMemoryBus, key string, handler Handler[Q, R]) {
	if bus == nil {
		panic("queries: nil bus")
	}
	bus.route(key, func(ctx context.Context, raw Query) (any, error) {
		q, ok := raw.(Q)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidQuery, key, raw)
		}
		return handler.Handle(ctx, q)
	})
}
