package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/common/validation"
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Lua script for atomic semaphore acquisition. Expired holders are evicted
// first, then a unit is granted only while the holder count is below the
// limit. ARGV: now-ms, limit, expiry-ms, member.
const luaSemAcquire = `
redis.call("zremrangebyscore", KEYS[1], "-inf", ARGV[1])
if redis.call("zcard", KEYS[1]) < tonumber(ARGV[2]) then
	redis.call("zadd", KEYS[1], ARGV[3], ARGV[4])
	return 1
end
return 0
`

// Lua script for atomic lease extension by a current holder. The member's
// score is re-set only while it is still present. ARGV: member, expiry-ms.
const luaSemRefresh = `
if redis.call("zscore", KEYS[1], ARGV[1]) then
	redis.call("zadd", KEYS[1], ARGV[2], ARGV[1])
	return 1
end
return 0
`

// Semaphore is a distributed counting semaphore backed by a Redis sorted
// set. Each held unit is a member scored with its lease expiry, so units
// held by crashed instances age out on their own.
type Semaphore struct {
	config        Config
	limit         int
	token         string
	acquireScript *redis.Script
	refreshScript *redis.Script
}

// NewSemaphore creates a distributed semaphore admitting up to limit
// concurrent holders across all instances.
func NewSemaphore(config Config, limit int) (*Semaphore, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("distributed", "limit", limit); err != nil {
		return nil, err
	}
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	return &Semaphore{
		config:        config,
		limit:         limit,
		token:         token,
		acquireScript: redis.NewScript(luaSemAcquire),
		refreshScript: redis.NewScript(luaSemRefresh),
	}, nil
}

// Acquire suspends tk until a unit is held, retrying on the loop's timer
// wheel. Returns ErrDeadlineExceeded once AcquireTimeout lapses and
// ErrCancelled if tk is cancelled while retrying.
func (s *Semaphore) Acquire(tk *loop.Task) error {
	clock := tk.Scheduler().Clock()
	var deadline time.Time
	if s.config.AcquireTimeout > 0 {
		deadline = clock.Now().Add(s.config.AcquireTimeout)
	}

	for {
		ok, err := s.tryAcquire(tk)
		if err != nil {
			return fmt.Errorf("distributed semaphore acquire: %w", err)
		}
		if ok {
			return nil
		}
		if !deadline.IsZero() && !clock.Now().Before(deadline) {
			return fmt.Errorf("distributed semaphore acquire %q: %w", s.config.Key, glerrors.ErrDeadlineExceeded)
		}
		if err := tk.Sleep(s.config.RetryInterval); err != nil {
			return err
		}
	}
}

func (s *Semaphore) tryAcquire(tk *loop.Task) (bool, error) {
	v, err := s.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
		defer cancel()
		now := time.Now()
		return s.acquireScript.Run(ctx, s.config.Redis, []string{s.config.Key},
			now.UnixMilli(),
			s.limit,
			now.Add(s.config.TTL).UnixMilli(),
			s.token,
		).Int()
	})
	if err != nil {
		return false, err
	}
	return v.(int) == 1, nil
}

// Refresh extends this instance's lease by another TTL if its unit is
// still held. Returns ErrNotOwner when the unit already expired.
func (s *Semaphore) Refresh(tk *loop.Task) error {
	v, err := s.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
		defer cancel()
		return s.refreshScript.Run(ctx, s.config.Redis, []string{s.config.Key},
			s.token, time.Now().Add(s.config.TTL).UnixMilli()).Int()
	})
	if err != nil {
		return fmt.Errorf("distributed semaphore refresh: %w", err)
	}
	if v.(int) == 0 {
		return glerrors.ErrNotOwner
	}
	return nil
}

// Release returns this instance's unit. Releasing a unit that already
// expired is a no-op.
func (s *Semaphore) Release(tk *loop.Task) error {
	_, err := s.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
		defer cancel()
		return s.config.Redis.ZRem(ctx, s.config.Key, s.token).Result()
	})
	if err != nil {
		return fmt.Errorf("distributed semaphore release: %w", err)
	}
	return nil
}

// Holders returns the number of currently held units across all instances.
func (s *Semaphore) Holders(tk *loop.Task) (int, error) {
	v, err := s.config.Bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.config.RedisTimeout)
		defer cancel()
		n, err := s.config.Redis.ZCount(ctx, s.config.Key,
			fmt.Sprintf("%d", time.Now().UnixMilli()), "+inf").Result()
		return int(n), err
	})
	if err != nil {
		return 0, fmt.Errorf("distributed semaphore holders: %w", err)
	}
	return v.(int), nil
}
