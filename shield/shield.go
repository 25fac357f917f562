// Package shield provides the HTTP middleware placed in front of the MCP
// streamable HTTP handler: security headers, body limits and per-request
// logging.
//
// Usage:
//
//	r := chi.NewRouter()
//	for _, mw := range shield.DefaultStack(logger) {
//	    r.Use(mw)
//	}
package shield

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// MaxRequestBody caps JSON-RPC request bodies.
const MaxRequestBody int64 = 4 << 20

// DefaultStack returns the middleware stack for the MCP HTTP transport.
// Order: RequestID, Recoverer, SecurityHeaders, MaxBody, RequestLog.
func DefaultStack(logger *slog.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Recoverer,
		SecurityHeaders(DefaultHeaders()),
		MaxBody(MaxRequestBody),
		RequestLog(logger),
	}
}
