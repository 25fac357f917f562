package shield

import "net/http"

// HeaderConfig defines the security headers applied to every response.
type HeaderConfig struct {
	XContentTypeOptions string
	XFrameOptions       string
	CacheControl        string
	ReferrerPolicy      string
}

// DefaultHeaders returns the header set for a JSON/SSE API.
func DefaultHeaders() HeaderConfig {
	return HeaderConfig{
		XContentTypeOptions: "nosniff",
		XFrameOptions:       "DENY",
		CacheControl:        "no-store",
		ReferrerPolicy:      "no-referrer",
	}
}

// SecurityHeaders returns middleware that sets the configured headers on
// every response. Empty fields are skipped.
func SecurityHeaders(cfg HeaderConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if cfg.XContentTypeOptions != "" {
				h.Set("X-Content-Type-Options", cfg.XContentTypeOptions)
			}
			if cfg.XFrameOptions != "" {
				h.Set("X-Frame-Options", cfg.XFrameOptions)
			}
			if cfg.CacheControl != "" {
				h.Set("Cache-Control", cfg.CacheControl)
			}
			if cfg.ReferrerPolicy != "" {
				h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
