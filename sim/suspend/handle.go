package suspend

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/inference-sim/pausesim/sim/hierarchy"
)

// Handle is one client-owned reason to keep the loop suspended. Activations
// nest: the handle stays registered until every Activate has been matched
// by a Release. Its methods may be called from any goroutine.
type Handle struct {
	id   uuid.UUID
	name string
	mgr  *Manager

	mu    sync.Mutex
	depth int
}

// NewHandle creates an inactive handle bound to m. When owner is non-nil
// the handle is named after it, e.g. owner "soc.cpu" and name "gdb" give
// "soc.cpu.gdb".
func NewHandle(m *Manager, owner hierarchy.Node, name string) *Handle {
	if owner != nil {
		name = owner.Name() + hierarchy.Separator + name
	}
	return &Handle{
		id:   uuid.New(),
		name: name,
		mgr:  m,
	}
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// Name returns the handle's hierarchical name.
func (h *Handle) Name() string { return h.name }

func (h *Handle) String() string { return h.name }

// Depth returns the current nesting depth.
func (h *Handle) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth
}

// IsActive reports whether the manager currently counts this handle.
func (h *Handle) IsActive() bool {
	return h.mgr.IsActive(h)
}

// Activate increments the nesting depth. The first activation registers the
// handle with the manager; it returns an error wrapping ErrEngineNotRunning,
// without changing any state, when the loop is not executing. Nested
// activations only count.
//
// With confirm set, a caller other than the loop goroutine blocks until the
// loop has finished its suspend walk. There is no timeout. A stopped loop
// is never waited for.
func (h *Handle) Activate(confirm bool) error {
	h.mu.Lock()
	if h.depth == 0 {
		if err := h.mgr.requestPause(h); err != nil {
			h.mu.Unlock()
			return fmt.Errorf("activating %s: %w", h.name, err)
		}
	}
	h.depth++
	h.mu.Unlock()

	if confirm && !h.mgr.sched.OnLoopGoroutine() && h.mgr.sched.IsRunning() {
		h.mgr.waitSuspended()
	}
	return nil
}

// Release undoes one Activate. The handle leaves the active set when its
// depth returns to zero. Releasing a handle at depth zero panics with an
// *UnmatchedReleaseError.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.depth == 0 {
		panic(&UnmatchedReleaseError{Handle: h.name})
	}
	h.depth--
	if h.depth == 0 {
		h.mgr.requestResume(h)
	}
}

// Close drops any outstanding hold in a single step, whatever the depth.
// Closing an inactive handle is a no-op. Close always returns nil.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.depth > 0 {
		h.depth = 0
		h.mgr.requestResume(h)
	}
	return nil
}
