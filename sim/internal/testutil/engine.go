package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inference-sim/pausesim/sim"
)

// WaitTimeout bounds every cross-goroutine wait in tests.
const WaitTimeout = 5 * time.Second

// StartLoop runs s on its own goroutine with a 1-tick ticker so it keeps
// reaching checkpoints, and waits until it reports running. The loop is
// stopped and joined on test cleanup. The returned channel closes when Run
// returns.
func StartLoop(t *testing.T, s *sim.Simulator) <-chan struct{} {
	t.Helper()
	s.Schedule(sim.NewTicker(1, nil))
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run()
	}()
	require.Eventually(t, s.IsRunning, WaitTimeout, time.Millisecond, "simulation loop never started")
	t.Cleanup(func() {
		s.Stop()
		select {
		case <-done:
		case <-time.After(WaitTimeout):
			t.Errorf("simulation loop did not stop")
		}
	})
	return done
}

// WaitClosed fails the test unless ch closes within WaitTimeout.
func WaitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(WaitTimeout):
		t.Fatalf("timed out waiting for %s", what)
	}
}
