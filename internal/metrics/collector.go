// Package metrics collects counters and time-series samples produced by
// the placement solvers while they search.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Standard counter names used across the solvers.
const (
	CounterIterations = "iterations"
	CounterAccepted   = "accepted"
	CounterRejected   = "rejected"
	CounterReanneals  = "reanneals"
	CounterRestarts   = "restarts"
	CounterPersisted  = "persisted"
)

// Sample is one point of the best-penalty series
type Sample struct {
	Timestamp time.Time
	Iteration int
	Penalty   float64
}

// Collector accumulates solver counters and the best-penalty trajectory.
// Safe for concurrent use by restart workers.
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	endTime   time.Time

	counters map[string]int64
	best     []Sample
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		counters:  make(map[string]int64),
	}
}

// Start marks the start of metric collection
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
}

// Stop marks the end of metric collection
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// Inc increments a counter by one
func (c *Collector) Inc(name string) {
	c.Add(name, 1)
}

// Add increments a counter by delta
func (c *Collector) Add(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// Counter returns the current value of a counter, zero if never written
func (c *Collector) Counter(name string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[name]
}

// Counters returns a copy of all counters
func (c *Collector) Counters() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int64, len(c.counters))
	for name, v := range c.counters {
		out[name] = v
	}
	return out
}

// RecordBest appends a point to the best-penalty series
func (c *Collector) RecordBest(iteration int, penalty float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.best = append(c.best, Sample{
		Timestamp: time.Now(),
		Iteration: iteration,
		Penalty:   penalty,
	})
}

// BestSeries returns the best-penalty samples ordered by timestamp
func (c *Collector) BestSeries() []Sample {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Sample, len(c.best))
	copy(out, c.best)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// BestPenalty returns the lowest penalty recorded so far, or false if the
// series is empty
func (c *Collector) BestPenalty() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.best) == 0 {
		return 0, false
	}
	best := c.best[0].Penalty
	for _, s := range c.best[1:] {
		if s.Penalty < best {
			best = s.Penalty
		}
	}
	return best, true
}

// Duration returns the elapsed collection time. If Stop has not been
// called, the duration runs to the current time.
func (c *Collector) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.endTime.IsZero() {
		return time.Since(c.startTime)
	}
	return c.endTime.Sub(c.startTime)
}
