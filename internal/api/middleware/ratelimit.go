package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	pkgredis "github.com/agentforge-ai/agentforge/internal/pkg/redis"
)

type RateLimiter struct {
	redis *pkgredis.Client
}

func NewRateLimiter(redis *pkgredis.Client) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Limit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.getKey(r)

			allowed, remaining, err := rl.redis.RateLimit(r.Context(), key, limit, window)
			if err != nil {
				// Redis down: let the request through rather than 500.
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window).Unix()))

			if !allowed {
				dto.ErrorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) getKey(r *http.Request) string {
	claims := GetUserFromContext(r.Context())
	if claims != nil {
		return fmt.Sprintf("ratelimit:user:%s", claims.UserID.String())
	}

	ip := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ip = forwarded
	}
	return fmt.Sprintf("ratelimit:ip:%s", ip)
}
