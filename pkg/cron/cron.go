// Package cron schedules recurring tasks on top of the goloop event loop.
//
// Each scheduled entry is driven by a long-lived task that sleeps on the
// loop's timer wheel until the next activation, runs the entry's proc to
// completion, and goes back to sleep. Firings of one entry therefore never
// overlap; schedule separate entries for concurrent work.
package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	glerrors "github.com/vnykmshr/goloop/pkg/common/errors"
	"github.com/vnykmshr/goloop/pkg/common/validation"
	"github.com/vnykmshr/goloop/pkg/loop"
)

// Entry describes one scheduled spec.
type Entry struct {
	ID      string
	Spec    string
	Created time.Time

	schedule cron.Schedule
	driver   *loop.Task
}

// Config holds cron scheduler configuration.
type Config struct {
	// Scheduler is the loop the entries run on. Required.
	Scheduler *loop.Scheduler

	// OnError is called after a firing settles with an error, including
	// cancellation of an individual firing. Optional.
	OnError func(entryID string, err error)
}

// Cron manages recurring entries on a loop scheduler.
type Cron struct {
	s       *loop.Scheduler
	onError func(string, error)
	parser  cron.Parser

	mu      sync.Mutex
	entries map[string]*Entry
}

// New creates a cron scheduler on s with default configuration.
func New(s *loop.Scheduler) *Cron {
	c, err := NewWithConfig(Config{Scheduler: s})
	if err != nil {
		panic(err)
	}
	return c
}

// NewWithConfig creates a cron scheduler with custom configuration.
func NewWithConfig(cfg Config) (*Cron, error) {
	if cfg.Scheduler == nil {
		return nil, glerrors.NewValidationError("cron", "scheduler", nil, "cannot be nil").
			WithHint("provide the loop scheduler the entries run on")
	}
	return &Cron{
		s:       cfg.Scheduler,
		onError: cfg.OnError,
		parser: cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
		entries: make(map[string]*Entry),
	}, nil
}

// Schedule registers proc under the given cron spec. Standard five-field
// expressions and descriptors like "@hourly" and "@every 10s" are accepted.
func (c *Cron) Schedule(id, spec string, proc loop.Proc) (*Entry, error) {
	if err := validation.ValidateNotEmpty("cron", "id", id); err != nil {
		return nil, err
	}
	schedule, err := c.parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("cron: parse %q: %w", spec, err)
	}
	return c.add(id, spec, schedule, proc)
}

// ScheduleEvery registers proc to fire at a fixed interval. Intervals below
// a second are rounded up by the underlying schedule, matching cron's
// granularity.
func (c *Cron) ScheduleEvery(id string, interval time.Duration, proc loop.Proc) (*Entry, error) {
	if err := validation.ValidateNotEmpty("cron", "id", id); err != nil {
		return nil, err
	}
	if interval <= 0 {
		return nil, fmt.Errorf("cron: interval must be positive, got %v", interval)
	}
	return c.add(id, fmt.Sprintf("@every %v", interval), cron.Every(interval), proc)
}

func (c *Cron) add(id, spec string, schedule cron.Schedule, proc loop.Proc) (*Entry, error) {
	c.mu.Lock()
	if _, exists := c.entries[id]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("cron: entry %q already scheduled", id)
	}
	entry := &Entry{
		ID:       id,
		Spec:     spec,
		Created:  c.s.Clock().Now(),
		schedule: schedule,
	}
	c.entries[id] = entry
	c.mu.Unlock()

	entry.driver = c.s.Spawn(c.drive(entry, proc))
	return entry, nil
}

// drive builds the long-lived proc that fires the entry on schedule.
func (c *Cron) drive(entry *Entry, proc loop.Proc) loop.Proc {
	return func(tk *loop.Task) (interface{}, error) {
		for {
			now := c.s.Clock().Now()
			next := entry.schedule.Next(now)
			if next.IsZero() {
				return nil, nil
			}
			if err := tk.Sleep(next.Sub(now)); err != nil {
				// Cancelled through Cancel or a direct driver.Cancel.
				return nil, err
			}
			run := c.s.Spawn(proc)
			if _, err := tk.Await(run); err != nil && c.onError != nil {
				c.onError(entry.ID, err)
			}
		}
	}
}

// Cancel stops the entry with the given id. Returns false if no such entry
// is scheduled. A firing already in progress finishes before the driver
// unwinds.
func (c *Cron) Cancel(id string) bool {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if ok {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	entry.driver.Cancel()
	return true
}

// CancelAll stops every scheduled entry.
func (c *Cron) CancelAll() {
	c.mu.Lock()
	entries := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()

	for _, e := range entries {
		e.driver.Cancel()
	}
}

// List returns a snapshot of the scheduled entries.
func (c *Cron) List() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	return out
}

// NextRun returns the next activation time for the entry, computed against
// the loop's clock.
func (e *Entry) NextRun(now time.Time) time.Time {
	return e.schedule.Next(now)
}
