package testutil

import (
	"sync"
	"sync/atomic"
)

// FakeScheduler is a manually driven scheduler. Tests flip Running and
// Loop and call Checkpoint to play the role of the simulation loop.
type FakeScheduler struct {
	Running atomic.Bool
	// Loop is what OnLoopGoroutine reports.
	Loop  atomic.Bool
	Clock atomic.Int64

	mu    sync.Mutex
	hooks []func()
}

// NewFakeScheduler returns a scheduler that reports running on the loop.
func NewFakeScheduler() *FakeScheduler {
	s := &FakeScheduler{}
	s.Running.Store(true)
	s.Loop.Store(true)
	return s
}

func (s *FakeScheduler) IsRunning() bool       { return s.Running.Load() }
func (s *FakeScheduler) OnLoopGoroutine() bool { return s.Loop.Load() }
func (s *FakeScheduler) Now() int64            { return s.Clock.Load() }

func (s *FakeScheduler) OnCheckpoint(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// Checkpoint runs every registered hook on the calling goroutine.
func (s *FakeScheduler) Checkpoint() {
	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}
