/*
Package executor bridges the cooperative loop to real OS-level concurrency.

A Pool manages a fixed number of worker goroutines that execute blocking
calls. A Bridge submits a call to a pool on behalf of a task, suspends that
task, and resumes it with the call's outcome, so the loop's carrier never
blocks on the call itself.

Basic usage:

	pool := executor.New(4, 16)
	defer func() { <-pool.Shutdown() }()

	s := loop.New()
	bridge := executor.NewBridge(s, pool)

	_, err := s.Run(func(tk *loop.Task) (interface{}, error) {
		return bridge.Offload(tk, func(ctx context.Context) (interface{}, error) {
			return http.Get("https://example.com") // blocking, off the carrier
		})
	})

Pool lifecycle (creation, sizing, shutdown) belongs to the caller, not the
loop: choose pool sizes per workload and pass different pools for I/O-bound
and CPU-bound calls. Exactly one resumption happens per offloaded call, and
a panic inside a call is marshalled back as the task's failure rather than
crashing the worker.
*/
package executor
