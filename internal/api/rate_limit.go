package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dunamismax/vectorstudio/internal/ratelimit"
)

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldRateLimit(r) {
			next.ServeHTTP(w, r)
			return
		}

		subject := ratelimit.Subject{User: s.userID(r), Route: routeLabel(r.URL.Path)}
		decision, err := s.rateLimiter.Allow(r.Context(), subject)
		if err != nil {
			s.logger.Warn().Err(err).Str("bucket", subject.Key()).Msg("rate limiter check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := max(int(decision.RetryAfter.Round(time.Second).Seconds()), 1)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		s.metrics.rateLimitRejected.WithLabelValues(subject.Route).Inc()
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	})
}

// shouldRateLimit covers the two expensive entry points: uploads and new jobs.
func shouldRateLimit(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	return r.URL.Path == "/v1/uploads" || r.URL.Path == "/v1/jobs"
}
