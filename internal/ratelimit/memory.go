package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type bucketState struct {
	tokens float64
	last   time.Time
}

// MemoryTokenBucket applies the same refill rule as the Redis script inside one
// process. It is used when the API runs without Redis.
type MemoryTokenBucket struct {
	mu          sync.Mutex
	capacity    float64
	refillPerMS float64
	ttl         time.Duration
	now         func() time.Time
	buckets     map[string]bucketState
}

func NewMemoryTokenBucket(rule Rule) (*MemoryTokenBucket, error) {
	if err := rule.validate(); err != nil {
		return nil, err
	}

	return &MemoryTokenBucket{
		capacity:    float64(rule.Capacity),
		refillPerMS: rule.refillPerMS(),
		ttl:         rule.idleTTL(),
		now:         time.Now,
		buckets:     make(map[string]bucketState),
	}, nil
}

func (l *MemoryTokenBucket) Allow(_ context.Context, subject Subject) (Decision, error) {
	key := subject.Key()
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.buckets[key]
	if !ok {
		state = bucketState{tokens: l.capacity, last: now}
	}
	elapsed := max(0, float64(now.Sub(state.last).Milliseconds()))
	state.tokens = math.Min(l.capacity, state.tokens+elapsed*l.refillPerMS)
	state.last = now

	d := Decision{}
	if state.tokens >= 1 {
		state.tokens--
		d.Allowed = true
	} else {
		d.RetryAfter = time.Duration(math.Ceil((1-state.tokens)/l.refillPerMS)) * time.Millisecond
	}
	d.Remaining = int64(math.Floor(state.tokens))
	l.buckets[key] = state

	l.evict(now)
	return d, nil
}

// evict drops buckets idle longer than the ttl, mirroring PEXPIRE.
func (l *MemoryTokenBucket) evict(now time.Time) {
	for key, state := range l.buckets {
		if now.Sub(state.last) > l.ttl {
			delete(l.buckets, key)
		}
	}
}
