package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/taskboard/taskboard-api/internal/api/shared"
)

// RateLimiter decides whether the client identified by key may make
// another request.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit returns middleware that rejects requests once the client's
// budget in the limiter is spent. Clients are keyed by IP address;
// RealIP must run earlier in the chain so proxied requests key on the
// originating client.
func RateLimit(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				slog.Error("rate limit check failed", "error", err)
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Rate limit check failed")
				return
			}
			if !allowed {
				shared.RespondWithError(
					w,
					r,
					http.StatusTooManyRequests,
					"Too many requests. Please try again later.",
				)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
