package commands

import (
	"context"
	"fmt"
	"sort"
)

type dispatchFunc func(ctx context.Context, cmd Command) (any, error)

// InMemoryBus routes commands by Key to handlers registered at startup.
// Registration is not synchronized; finish it before the first Dispatch.
type InMemoryBus struct {
	routes map[string]dispatchFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{routes: make(map[string]dispatchFunc)}
}

func (b *InMemoryBus) route(key string, fn dispatchFunc) {
	if key == "" {
		panic("commands: empty key registration")
	}
	if _, taken := b.routes[key]; taken {
		panic(fmt.Sprintf("commands: %q registered twice", key))
	}
	b.routes[key] = fn
}

// Keys returns the registered command keys in lexical order.
func (b *InMemoryBus) Keys() []string {
	keys := make([]string, 0, len(b.routes))
	for k := range b.routes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *InMemoryBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	fn, ok := b.routes[cmd.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, cmd.Key())
	}
	return fn(ctx, cmd)
}

// RegisterHandler binds a typed handler to key. Dispatching a command of a
// different type under the same key fails with ErrInvalidCommand.
func RegisterHandler[C Command, R any](bus *InMemoryBus, key string, handler Handler[C, R]) {
	if bus == nil {
		panic("commands: nil bus")
	}
	bus.route(key, func(ctx context.Context, raw Command) (any, error) {
		cmd, ok := raw.(C)
		if !ok {
			return nil, fmt.Errorf("%w: %s got %T", ErrInvalidCommand, key, raw)
		}
		return handler.Handle(ctx, cmd)
	})
}
