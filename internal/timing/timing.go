// Package timing aggregates per-stage processing durations across a
// pipeline run.
package timing

import (
	"sync"
	"time"
)

// Stat is the accumulated observation for one stage.
type Stat struct {
	Count int
	Total time.Duration
}

// Average returns the mean duration per observation.
func (s Stat) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Tracker collects stage durations from concurrent workers.
type Tracker struct {
	mu     sync.Mutex
	stages map[string]Stat
}

func NewTracker() *Tracker {
	return &Tracker{stages: make(map[string]Stat)}
}

// Observe records one duration for the stage.
func (t *Tracker) Observe(stage string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	stat := t.stages[stage]
	stat.Count++
	stat.Total += d
	t.stages[stage] = stat
}

// Track starts a timer for the stage and returns the stop function.
func (t *Tracker) Track(stage string) func() {
	start := time.Now()
	return func() {
		t.Observe(stage, time.Since(start))
	}
}

// Snapshot copies the current stats.
func (t *Tracker) Snapshot() map[string]Stat {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := make(map[string]Stat, len(t.stages))
	for stage, stat := range t.stages {
		snapshot[stage] = stat
	}
	return snapshot
}
