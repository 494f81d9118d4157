package http

import (
	"context"
	"net/http"
	"strconv"

	"adaptive-quiz-service/internal/app"
	"go.uber.org/zap"
)

type contextKey string

const userIDKey contextKey = "userID"

// identity requires a caller identity via the X-User-ID header or the
// user-id cookie. Identity is externally supplied and opaque here.
func identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			if cookie, err := r.Cookie("user-id"); err == nil {
				userID = cookie.Value
			}
		}
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID header or user-id cookie")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// rateLimited enforces the per-(user, endpoint) budget. Limiter errors
// fail open: losing the counter backend should not take the quiz down.
func rateLimited(limiter app.RateLimiter, endpoint string, log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			if cookie, err := r.Cookie("user-id"); err == nil {
				userID = cookie.Value
			}
		}

		allowed, remaining, err := limiter.Allow(r.Context(), userID, endpoint)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("endpoint", endpoint), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
