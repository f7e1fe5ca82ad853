package benchmark

import (
	"testing"

	"github.com/vnykmshr/goloop/pkg/loop"
	gosync "github.com/vnykmshr/goloop/pkg/sync"
)

// BenchmarkLockUncontended measures acquire/release with no waiters.
func BenchmarkLockUncontended(b *testing.B) {
	s := loop.New()
	l := gosync.NewLock()
	b.ReportAllocs()
	b.ResetTimer()
	_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		for i := 0; i < b.N; i++ {
			if err := l.Acquire(tk); err != nil {
				return nil, err
			}
			if err := l.Release(tk); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		b.Fatalf("run: %v", err)
	}
}

// BenchmarkLockHandoff measures contended handoff between two tasks
// alternating ownership through the wait list.
func BenchmarkLockHandoff(b *testing.B) {
	s := loop.New()
	l := gosync.NewLock()
	b.ReportAllocs()
	b.ResetTimer()
	_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		worker := func(tk *loop.Task) (interface{}, error) {
			for i := 0; i < b.N; i++ {
				if err := l.Acquire(tk); err != nil {
					return nil, err
				}
				if err := l.Release(tk); err != nil {
					return nil, err
				}
			}
			return nil, nil
		}
		_, err := loop.Gather(tk, s.Spawn(worker), s.Spawn(worker))
		return nil, err
	})
	if err != nil {
		b.Fatalf("run: %v", err)
	}
}

// BenchmarkQueuePutGet measures one item through a bounded queue with a
// producer and a consumer task.
func BenchmarkQueuePutGet(b *testing.B) {
	s := loop.New()
	q := gosync.NewQueue(64)
	b.ReportAllocs()
	b.ResetTimer()
	_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		producer := s.Spawn(func(tk *loop.Task) (interface{}, error) {
			for i := 0; i < b.N; i++ {
				if err := q.Put(tk, i); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		consumer := s.Spawn(func(tk *loop.Task) (interface{}, error) {
			for i := 0; i < b.N; i++ {
				if _, err := q.Get(tk); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		_, err := loop.Gather(tk, producer, consumer)
		return nil, err
	})
	if err != nil {
		b.Fatalf("run: %v", err)
	}
}
