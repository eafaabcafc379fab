package aggregator

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunState is the process-wide mutual exclusion gate plus a small status
// snapshot. The update log, not this struct, is the source of truth for run
// history.
type RunState struct {
	running atomic.Bool

	mu         sync.Mutex
	lastRunAt  time.Time
	lastStatus string
}

func NewRunState() *RunState {
	return &RunState{}
}

// TryStart transitions Idle to Running. It returns false when a run is
// already active; callers must not queue behind it.
func (s *RunState) TryStart() bool {
	return s.running.CompareAndSwap(false, true)
}

func (s *RunState) Finish(status string) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.lastStatus = status
	s.mu.Unlock()

	s.running.Store(false)
}

func (s *RunState) Running() bool {
	return s.running.Load()
}

func (s *RunState) LastRun() (time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt, s.lastStatus
}
