package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

// contextInjector is implemented by units whose driver keeps its session on
// the context, such as mongo.
type contextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// Bind lets the unit inject its driver handle and then stores it on ctx.
// Repositories and outbox stores resolved inside a command see the same unit.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(contextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Current is FromContext for callers that cannot run without a unit.
func Current(ctx context.Context) (UnitOfWork, error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, nil
	}
	return nil, ErrUnitOfWorkMissing
}
