package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/SunnyXcode/Ai-Insider-Threat-Detection/internal/domain/errors"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
	perSec   int
}

// NewRateLimiter returns nil when rps is not positive, which disables
// limiting.
func NewRateLimiter(rps, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return &RateLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		perSec: rps,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	l, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rps, rl.burst))
	return l.(*rate.Limiter)
}

// Allow consumes a token for key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		if rl == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := rl.limiter(ClientIP(r))
			if !l.Allow() {
				res := l.Reserve()
				retry := res.Delay()
				res.Cancel()

				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perSec))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfterSeconds(retry)))
				WriteAppError(w, r, apperrors.NewRateLimitError("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(d time.Duration) float64 {
	if d < time.Second {
		return 1
	}
	return d.Seconds()
}
