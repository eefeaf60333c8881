package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "rv0:ratelimit"

// tokenBucketScript refills and spends one bucket atomically. It replies with
// {allowed, remaining, retry_after_ms}.
const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_per_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call("HMGET", key, "tokens", "timestamp")
local tokens = tonumber(state[1]) or capacity
local last_ms = tonumber(state[2]) or now_ms

tokens = math.min(capacity, tokens + math.max(0, now_ms - last_ms) * refill_per_ms)

local allowed = 0
local wait_ms = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
else
  wait_ms = math.ceil((1 - tokens) / refill_per_ms)
end

redis.call("HSET", key, "tokens", tokens, "timestamp", now_ms)
redis.call("PEXPIRE", key, ttl_ms)
return {allowed, math.floor(tokens), wait_ms}
`

// RedisTokenBucket shares buckets between API replicas through Redis.
type RedisTokenBucket struct {
	client    redis.UniversalClient
	rule      Rule
	keyPrefix string
	now       func() time.Time
	script    *redis.Script
}

func NewRedisTokenBucket(client redis.UniversalClient, rule Rule, keyPrefix string) (*RedisTokenBucket, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := rule.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = DefaultKeyPrefix
	}

	return &RedisTokenBucket{
		client:    client,
		rule:      rule,
		keyPrefix: keyPrefix,
		now:       time.Now,
		script:    redis.NewScript(tokenBucketScript),
	}, nil
}

func (l *RedisTokenBucket) key(subject Subject) string {
	return l.keyPrefix + ":" + subject.Key()
}

func (l *RedisTokenBucket) Allow(ctx context.Context, subject Subject) (Decision, error) {
	raw, err := l.script.Run(
		ctx,
		l.client,
		[]string{l.key(subject)},
		l.rule.Capacity,
		l.rule.refillPerMS(),
		l.now().UTC().UnixMilli(),
		l.rule.idleTTL().Milliseconds(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket script: %w", err)
	}
	return parseDecision(raw)
}

func parseDecision(raw any) (Decision, error) {
	values, ok := raw.([]any)
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("invalid token bucket response")
	}

	var fields [3]int64
	for i, name := range []string{"allowed", "remaining", "retry-after"} {
		n, err := replyInt(values[i])
		if err != nil {
			return Decision{}, fmt.Errorf("parse %s value: %w", name, err)
		}
		fields[i] = n
	}

	return Decision{
		Allowed:    fields[0] == 1,
		Remaining:  fields[1],
		RetryAfter: time.Duration(fields[2]) * time.Millisecond,
	}, nil
}

// replyInt accepts the integer shapes go-redis produces for Lua replies.
func replyInt(in any) (int64, error) {
	switch v := in.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", in)
	}
}
