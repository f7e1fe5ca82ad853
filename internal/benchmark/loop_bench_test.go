package benchmark

import (
	"fmt"
	"testing"

	"github.com/vnykmshr/goloop/pkg/loop"
)

// BenchmarkSpawnAwait measures the full spawn-run-join cycle for trivial
// tasks, the base cost of one unit of scheduled work.
func BenchmarkSpawnAwait(b *testing.B) {
	s := loop.New()
	b.ReportAllocs()
	b.ResetTimer()
	_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		for i := 0; i < b.N; i++ {
			child := s.Spawn(func(tk *loop.Task) (interface{}, error) {
				return nil, nil
			})
			if _, err := tk.Await(child); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		b.Fatalf("run: %v", err)
	}
}

// BenchmarkGather measures fan-out/fan-in cost at several widths.
func BenchmarkGather(b *testing.B) {
	widths := []int{4, 16, 64}
	for _, width := range widths {
		b.Run(fmt.Sprintf("width-%d", width), func(b *testing.B) {
			s := loop.New()
			b.ReportAllocs()
			b.ResetTimer()
			_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
				for i := 0; i < b.N; i++ {
					tasks := make([]*loop.Task, width)
					for j := range tasks {
						tasks[j] = s.Spawn(func(tk *loop.Task) (interface{}, error) {
							return j, nil
						})
					}
					if _, err := loop.Gather(tk, tasks...); err != nil {
						return nil, err
					}
				}
				return nil, nil
			})
			if err != nil {
				b.Fatalf("run: %v", err)
			}
		})
	}
}

// BenchmarkSleepZero measures a park-and-resume round trip through the
// timer wheel with an already-expired deadline.
func BenchmarkSleepZero(b *testing.B) {
	s := loop.New()
	b.ReportAllocs()
	b.ResetTimer()
	_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		for i := 0; i < b.N; i++ {
			if err := tk.Sleep(0); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		b.Fatalf("run: %v", err)
	}
}
