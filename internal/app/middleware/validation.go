package middleware

import (
	"context"
	"fmt"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/queries"
)

// Validator rejects malformed messages before they reach authorization or a
// store. Implementations ignore messages they have no rules for.
type Validator interface {
	Validate(ctx context.Context, message any) error
}

type keyed interface {
	Key() string
}

func validate(ctx context.Context, v Validator, msg keyed) error {
	if err := v.Validate(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", msg.Key(), err)
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := validate(ctx, v, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := validate(ctx, v, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
