package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const anonymous = "anonymous"

// Limiter is what the HTTP layer consults before accepting uploads and jobs.
type Limiter interface {
	Allow(ctx context.Context, subject Subject) (Decision, error)
}

// Subject identifies one bucket: a caller on one rate-limited route. Each route
// keeps its own budget, so a burst of uploads does not block job creation.
type Subject struct {
	User  string
	Route string
}

// Key renders the bucket name as route:user. An empty user shares the anonymous
// bucket for that route.
func (s Subject) Key() string {
	user := strings.TrimSpace(s.User)
	if user == "" {
		user = anonymous
	}
	route := strings.TrimSpace(s.Route)
	if route == "" {
		return user
	}
	return route + ":" + user
}

// Rule allows Capacity requests per Window, refilled continuously.
type Rule struct {
	Capacity int
	Window   time.Duration
}

func (r Rule) validate() error {
	if r.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if r.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	return nil
}

func (r Rule) refillPerMS() float64 {
	return float64(r.Capacity) / float64(max(r.Window.Milliseconds(), 1))
}

// idleTTL is how long an untouched bucket is kept. After that it would be full anyway.
func (r Rule) idleTTL() time.Duration {
	return 2 * r.Window
}

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}
