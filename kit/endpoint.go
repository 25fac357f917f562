// Package kit holds the transport-agnostic endpoint plumbing shared by the
// browser tools: an Endpoint signature, middleware chaining, request-scoped
// context values and the MCP adapter.
package kit

import (
	"context"
	"log/slog"
	"time"
)

// Endpoint handles one decoded request.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first one is the outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

// Logging logs every call of the named operation with its duration. Errors
// are logged at warn: they are caller or environment faults, not crashes.
func Logging(logger *slog.Logger, op string) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{
				"op", op,
				"duration", time.Since(start),
				"transport", GetTransport(ctx),
				"session_id", GetSessionID(ctx),
				"request_id", GetRequestID(ctx),
			}
			if err != nil {
				logger.Warn("kit: call failed", append(attrs, "error", err)...)
			} else {
				logger.Debug("kit: call", attrs...)
			}
			return resp, err
		}
	}
}
