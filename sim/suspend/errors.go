package suspend

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineNotRunning is returned by Activate when the simulation loop
	// is not executing. No state is mutated.
	ErrEngineNotRunning = errors.New("suspend: simulation not running")

	// ErrReentrantCheckpoint is the panic value raised when a checkpoint is
	// entered while a suspend or resume walk is still in progress.
	ErrReentrantCheckpoint = errors.New("suspend: checkpoint re-entered during a transition walk")

	// ErrNotLoopGoroutine is the panic value raised when HandleRequests is
	// called from a goroutine other than the simulation loop.
	ErrNotLoopGoroutine = errors.New("suspend: checkpoint called off the loop goroutine")
)

// UnmatchedReleaseError is the panic value raised by Release on a handle
// whose nesting depth is already zero. It signals broken call pairing and
// is never recovered internally.
type UnmatchedReleaseError struct {
	Handle string
}

func (e *UnmatchedReleaseError) Error() string {
	return fmt.Sprintf("suspend: unmatched release of %q", e.Handle)
}
