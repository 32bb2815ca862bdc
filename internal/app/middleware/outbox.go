package middleware

import (
	"context"
	"log/slog"

	"venuehire/internal/app/commands"
	"venuehire/internal/app/outbox"
)

// OutboxFlush must wrap Transaction: records are flushed only once the unit of
// work has committed. A flush failure is logged, not returned, because the
// state change is already durable.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx = outbox.WithBatch(ctx)
			res, err := nextFn(ctx, cmd)
			if err != nil {
				if d, ok := box.(outbox.Discarder); ok {
					d.Discard(ctx)
				}
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				logger.ErrorContext(ctx, "outbox flush failed", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
