package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentdetail/internal/app/commands"
	"rentdetail/internal/app/queries"
)

// RequestIDFunc extracts a correlation id from the context.
type RequestIDFunc func(ctx context.Context) string

// QueryLogging records every query with its duration and outcome.
func QueryLogging(logger *slog.Logger, requestID RequestIDFunc) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, requestID, "query", q.Key(), start, err)
			return res, err
		})
	}
}

// CommandLogging records every command with its duration and outcome.
func CommandLogging(logger *slog.Logger, requestID RequestIDFunc) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, requestID, "command", cmd.Key(), start, err)
			return res, err
		})
	}
}

// QueryTimeout bounds every query with d. Zero disables it.
func QueryTimeout(d time.Duration) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		if d <= 0 {
			return next
		}
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next.Ask(ctx, q)
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, requestID RequestIDFunc, kind, key string, start time.Time, err error) {
	if logger == nil {
		return
	}
	attrs := []any{"kind", kind, "key", key, "duration", time.Since(start)}
	if requestID != nil {
		if id := requestID(ctx); id != "" {
			attrs = append(attrs, "request_id", id)
		}
	}
	if err != nil {
		logger.WarnContext(ctx, "bus call failed", append(attrs, "error", err)...)
		return
	}
	logger.DebugContext(ctx, "bus call", attrs...)
}
