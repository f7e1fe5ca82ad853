package distributed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/common/validation"
	"github.com/vnykmshr/goloop/pkg/executor"
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Lua script for atomic compare-and-delete release.
const luaRelease = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Lua script for atomic lease extension by the current holder.
const luaRefresh = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`

// Config holds configuration for distributed primitives.
type Config struct {
	// Redis client for coordination
	Redis redis.UniversalClient

	// Bridge offloads blocking Redis calls so the loop carrier never blocks
	Bridge *executor.Bridge

	// Key is the Redis key for this primitive
	Key string

	// TTL is the lease duration; a crashed holder is released when it
	// lapses (defaults to 30 seconds)
	TTL time.Duration

	// RetryInterval is how long an acquirer sleeps between attempts
	// (defaults to 100 milliseconds)
	RetryInterval time.Duration

	// AcquireTimeout bounds how long Acquire keeps retrying.
	// Zero means retry until cancelled.
	AcquireTimeout time.Duration

	// RedisTimeout is the timeout for individual Redis operations
	// (defaults to 5 seconds)
	RedisTimeout time.Duration
}

func (c *Config) applyDefaults() error {
	if c.Redis == nil {
		return glerrors.NewValidationError("distributed", "redis", nil, "cannot be nil").
			WithHint("provide a redis.UniversalClient")
	}
	if c.Bridge == nil {
		return glerrors.NewValidationError("distributed", "bridge", nil, "cannot be nil").
			WithHint("provide an executor.Bridge for blocking Redis calls")
	}
	if err := validation.ValidateNotEmpty("distributed", "key", c.Key); err != nil {
		return err
	}
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 100 * time.Millisecond
	}
	if c.RedisTimeout <= 0 {
		c.RedisTimeout = 5 * time.Second
	}
	return nil
}

// Lock is a distributed mutual-exclusion lock backed by a single Redis key.
// Acquisition sets the key with a per-instance token; release and refresh
// are compare-and-set on that token, so only the holder can perform them.
type Lock struct {
	config        Config
	token         string
	releaseScript *redis.Script
	refreshScript *redis.Script
}

// NewLock creates a distributed lock. Each Lock value carries its own
// holder token; share a single value per logical holder.
func NewLock(config Config) (*Lock, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	return &Lock{
		config:        config,
		token:         token,
		releaseScript: redis.NewScript(luaRelease),
		refreshScript: redis.NewScript(luaRefresh),
	}, nil
}

// Acquire suspends tk until the lock is held, retrying on the loop's timer
// wheel. Returns ErrDeadlineExceeded once AcquireTimeout lapses and
// ErrCancelled if tk is cancelled while retrying.
func (l *Lock) Acquire(tk *loop.Task) error {
	clock := tk.Scheduler().Clock()
	var deadline time.Time
	if l.config.AcquireTimeout > 0 {
		deadline = clock.Now().Add(l.config.AcquireTimeout)
	}

	for {
		ok, err := l.tryAcquire(tk)
		if err != nil {
			return fmt.Errorf("distributed lock acquire: %w", err)
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && !clock.Now().Before(deadline) {
			return fmt.Errorf("distributed lock acquire %q: %w", l.config.Key, glerrors.ErrDeadlineExceeded)
		}
		if err := tk.Sleep(l.config.RetryInterval); err != nil {
			return err
		}
	}
}

// TryAcquire makes a single acquisition attempt without retrying. The task
// still suspends for the duration of the Redis round trip.
func (l *Lock) TryAcquire(tk *loop.Task) (bool, error) {
	return l.tryAcquire(tk)
}

func (l *Lock) tryAcquire(tk *loop.Task) (bool, error) {
	v, err := l.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
		defer cancel()
		return l.config.Redis.SetNX(ctx, l.config.Key, l.token, l.config.TTL).Result()
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Release drops the lock if this instance still holds it. Returns
// ErrNotOwner when the key holds someone else's token or the lease already
// expired.
func (l *Lock) Release(tk *loop.Task) error {
	v, err := l.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
		defer cancel()
		return l.releaseScript.Run(ctx, l.config.Redis, []string{l.config.Key}, l.token).Int()
	})
	if err != nil {
		return fmt.Errorf("distributed lock release: %w", err)
	}
	if v.(int) == 0 {
		return glerrors.ErrNotOwner
	}
	return nil
}

// Refresh extends the lease by another TTL if this instance still holds the
// lock. Returns ErrNotOwner when the lease was lost.
func (l *Lock) Refresh(tk *loop.Task) error {
	v, err := l.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, l.config.RedisTimeout)
		defer cancel()
		return l.refreshScript.Run(ctx, l.config.Redis, []string{l.config.Key},
			l.token, l.config.TTL.Milliseconds()).Int()
	})
	if err != nil {
		return fmt.Errorf("distributed lock refresh: %w", err)
	}
	if v.(int) == 0 {
		return glerrors.ErrNotOwner
	}
	return nil
}

func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("distributed: generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
