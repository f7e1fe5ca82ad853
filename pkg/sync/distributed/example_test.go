package distributed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/goloop/pkg/executor"
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Example_lock demonstrates a lease-based lock shared across processes.
func Example_lock() {
	// Create a Redis client (in real usage, use your Redis connection)
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use a test database
	})
	defer func() { _ = rdb.Close() }()

	// Test Redis connection
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Println("Redis not available, skipping example")
		return
	}

	s := loop.New()
	pool := executor.New(4, 16)
	defer func() { <-pool.Shutdown() }()
	bridge := executor.NewBridge(s, pool)

	lock, err := NewLock(Config{
		Redis:          rdb,
		Bridge:         bridge,
		Key:            "orders:leader",
		TTL:            10 * time.Second,
		AcquireTimeout: 2 * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create lock: %v", err)
	}

	result, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		if err := lock.Acquire(tk); err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(tk); err != nil {
				log.Printf("release: %v", err)
			}
		}()

		// Only one process at a time runs this section.
		return "work done under the lease", nil
	})
	if err != nil {
		log.Fatalf("Run: %v", err)
	}
	fmt.Println(result)
}

// Example_semaphore demonstrates bounding concurrency across processes.
func Example_semaphore() {
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1,
	})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Println("Redis not available, skipping example")
		return
	}

	s := loop.New()
	pool := executor.New(4, 16)
	defer func() { <-pool.Shutdown() }()
	bridge := executor.NewBridge(s, pool)

	sem, err := NewSemaphore(Config{
		Redis:  rdb,
		Bridge: bridge,
		Key:    "batch:slots",
		TTL:    30 * time.Second,
	}, 3)
	if err != nil {
		log.Fatalf("Failed to create semaphore: %v", err)
	}

	_, err = s.Run(func(tk *loop.Task) (interface{}, error) {
		if err := sem.Acquire(tk); err != nil {
			return nil, err
		}
		defer func() {
			if err := sem.Release(tk); err != nil {
				log.Printf("release: %v", err)
			}
		}()

		holders, err := sem.Holders(tk)
		if err != nil {
			return nil, err
		}
		fmt.Printf("at most 3 concurrent holders, currently %d\n", holders)

		// Long-running holders extend their lease before the TTL lapses.
		if err := sem.Refresh(tk); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		log.Fatalf("Run: %v", err)
	}
}
