package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const (
	KeyPrefix      = "ads:"
	DefaultTTL     = 600 * time.Second
	DefaultTimeout = 200 * time.Millisecond
)

// advanceScript increments the cursor and wraps it into [0, n).
const advanceScript = `
local v = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], ARGV[2])
return (v - 1) % tonumber(ARGV[1])
`

type Options struct {
	TTL              time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
	Recorder         Recorder
}

// RotationCache stores rotation state in Redis. Every failure (timeout,
// connection error, open breaker, bad payload) degrades to a miss or no-op.
type RotationCache struct {
	client   redis.Cmdable
	ttl      time.Duration
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker[any]
	recorder Recorder
}

func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

func NewRotationCache(client redis.Cmdable, opts Options) *RotationCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "rotation-cache",
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: isBackendHealthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Cache circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &RotationCache{
		client:   client,
		ttl:      opts.TTL,
		timeout:  opts.Timeout,
		breaker:  breaker,
		recorder: opts.Recorder,
	}
}

func (c *RotationCache) Load(ctx context.Context, key string) (*ads.RotationState, bool) {
	fullKey := stateKey(key)

	raw, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		data, err := c.client.Get(ctx, fullKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return data, err
	})
	if err != nil {
		c.fail("get", fullKey, err)
		return nil, false
	}

	data, _ := raw.([]byte)
	if len(data) == 0 {
		c.record("get", "miss")
		return nil, false
	}

	var state ads.RotationState
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("Discarding unreadable rotation state", "key", fullKey, "error", err)
		c.Clear(ctx, key)
		c.record("get", "miss")
		return nil, false
	}

	c.record("get", "hit")
	return &state, true
}

func (c *RotationCache) Save(ctx context.Context, key string, state ads.RotationState) {
	fullKey := stateKey(key)

	data, err := json.Marshal(state)
	if err != nil {
		c.fail("set", fullKey, fmt.Errorf("failed to marshal rotation state: %w", err))
		return
	}

	_, err = c.execute(ctx, func(ctx context.Context) (any, error) {
		return nil, c.client.Set(ctx, fullKey, data, c.ttl).Err()
	})
	if err != nil {
		c.fail("set", fullKey, err)
		return
	}
	c.record("set", "ok")
}

// Clear deletes the state and cursor entries of keys. Absent keys are fine.
func (c *RotationCache) Clear(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}

	fullKeys := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		fullKeys = append(fullKeys, stateKey(key), cursorKey(key))
	}

	_, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		return nil, c.client.Del(ctx, fullKeys...).Err()
	})
	if err != nil {
		c.fail("del", fullKeys[0], err)
		return
	}
	c.record("del", "ok")
}

// Advance atomically takes the next cursor position for key.
func (c *RotationCache) Advance(ctx context.Context, key string, n int) (int, bool) {
	if n <= 0 {
		return 0, false
	}
	fullKey := cursorKey(key)

	raw, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		return c.client.Eval(ctx, advanceScript, []string{fullKey}, n, int(c.ttl.Seconds())).Int()
	})
	if err != nil {
		c.fail("advance", fullKey, err)
		return 0, false
	}

	pos, _ := raw.(int)
	if pos < 0 || pos >= n {
		return 0, false
	}
	c.record("advance", "ok")
	return pos, true
}

func (c *RotationCache) Health(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"status":  "healthy",
		"type":    "redis",
		"breaker": c.breaker.State().String(),
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Ping(pingCtx).Err(); err != nil {
		health["status"] = "degraded"
		health["error"] = err.Error()
	}
	return health
}

func (c *RotationCache) Close() error {
	if closer, ok := c.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (c *RotationCache) execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return c.breaker.Execute(func() (any, error) {
		opCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return fn(opCtx)
	})
}

// isBackendHealthy reports whether err says nothing about Redis itself. A
// request abandoned by its caller must not count toward opening the breaker.
func isBackendHealthy(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func (c *RotationCache) fail(op, key string, err error) {
	result := "error"
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		result = "open"
	}
	slog.Warn("Rotation cache unavailable, continuing without cache", "operation", op, "key", key, "error", err)
	c.record(op, result)
}

func (c *RotationCache) record(op, result string) {
	if c.recorder != nil {
		c.recorder.CacheOp(op, result)
	}
}

func stateKey(key string) string {
	return KeyPrefix + key
}

func cursorKey(key string) string {
	return KeyPrefix + key + ":cursor"
}
