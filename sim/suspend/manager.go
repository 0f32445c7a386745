package suspend

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pausesim/sim/hierarchy"
	"github.com/inference-sim/pausesim/sim/trace"
)

// Scheduler is the part of the simulation loop the Manager depends on.
// *sim.Simulator satisfies it.
type Scheduler interface {
	// IsRunning reports, without blocking, whether the loop is executing.
	IsRunning() bool
	// OnLoopGoroutine reports whether the caller is the loop goroutine.
	OnLoopGoroutine() bool
	// OnCheckpoint registers a hook invoked once per safe point.
	OnCheckpoint(fn func())
	// Now returns the simulated clock.
	Now() int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithTrace records every transition into st.
func WithTrace(st *trace.SessionTrace) Option {
	return func(m *Manager) {
		m.trace = st
	}
}

// Manager owns the set of active handles and drives the loop through
// suspend and resume transitions. Create exactly one per Scheduler.
type Manager struct {
	sched Scheduler
	tree  hierarchy.Provider
	trace *trace.SessionTrace

	// engine is held by the loop for the entire time it is running and
	// released only while suspended. Confirmed activations block on it.
	engine sync.Mutex

	// mu guards active, index and forced. quiescent uses mu as its locker
	// and is broadcast whenever active becomes empty.
	mu        sync.Mutex
	quiescent *sync.Cond
	active    *list.List // of *Handle, oldest first
	index     map[*Handle]*list.Element
	forced    bool

	pending   atomic.Int64 // active.Len(), read unlocked by the fast path
	suspended atomic.Bool
	walking   atomic.Bool
}

// NewManager creates the Manager for s and registers HandleRequests as a
// checkpoint hook. tree may be nil when no component needs notifying.
func NewManager(s Scheduler, tree hierarchy.Provider, opts ...Option) *Manager {
	m := &Manager{
		sched:  s,
		tree:   tree,
		active: list.New(),
		index:  make(map[*Handle]*list.Element),
	}
	m.quiescent = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	m.engine.Lock()
	s.OnCheckpoint(m.HandleRequests)
	return m
}

// requestPause adds h to the active set. Adding a member is a no-op.
func (m *Manager) requestPause(h *Handle) error {
	if !m.sched.IsRunning() {
		return ErrEngineNotRunning
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[h]; ok {
		return nil
	}
	m.index[h] = m.active.PushBack(h)
	m.pending.Store(int64(m.active.Len()))
	logrus.Debugf("suspend: %s [%s] requested pause (%d active)", h.name, h.id, m.active.Len())
	return nil
}

// requestResume removes h from the active set. Removing a non-member,
// e.g. after ForceResume, is a no-op.
func (m *Manager) requestResume(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.index[h]
	if !ok {
		return
	}
	m.active.Remove(e)
	delete(m.index, h)
	m.pending.Store(int64(m.active.Len()))
	logrus.Debugf("suspend: %s [%s] released pause (%d active)", h.name, h.id, m.active.Len())
	if m.active.Len() == 0 {
		m.quiescent.Broadcast()
	}
}

// waitSuspended blocks until the loop has released the engine lock.
func (m *Manager) waitSuspended() {
	m.engine.Lock()
	// acquiring the lock is the signal; nothing is guarded here
	m.engine.Unlock()
}

// IsActive reports whether h is in the active set.
func (m *Manager) IsActive(h *Handle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[h]
	return ok
}

// Count returns the number of distinct active handles.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.Len()
}

// Suspended reports whether the loop has entered a suspend transition and
// not yet finished resuming.
func (m *Manager) Suspended() bool {
	return m.suspended.Load()
}

// Current returns the oldest active handle while the loop is suspended,
// and nil otherwise. The suspended state is probed with a non-blocking
// attempt on the engine lock, so the answer may be stale by the time the
// caller sees it. Use it for reporting only.
func (m *Manager) Current() *Handle {
	if !m.engine.TryLock() {
		return nil
	}
	m.engine.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if front := m.active.Front(); front != nil {
		return front.Value.(*Handle)
	}
	return nil
}

// ForceResume drops every active handle and wakes the loop. Handles keep
// their nesting depth; their later releases are no-ops on the registry.
func (m *Manager) ForceResume() {
	m.mu.Lock()
	dropped := m.namesLocked()
	m.active.Init()
	m.index = make(map[*Handle]*list.Element)
	m.pending.Store(0)
	if len(dropped) > 0 {
		m.forced = true
	}
	m.quiescent.Broadcast()
	m.mu.Unlock()

	if len(dropped) > 0 {
		logrus.Warnf("suspend: force resume dropped %d outstanding requests (%s)",
			len(dropped), strings.Join(dropped, ", "))
	}
}

// HandleRequests is the checkpoint hook. It returns at once when nothing
// is active; otherwise it suspends the loop until the active set empties.
// Must run on the loop goroutine; panics with ErrNotLoopGoroutine or
// ErrReentrantCheckpoint when that contract is broken.
func (m *Manager) HandleRequests() {
	if m.pending.Load() == 0 {
		return
	}
	if !m.sched.OnLoopGoroutine() {
		panic(ErrNotLoopGoroutine)
	}
	if !m.walking.CompareAndSwap(false, true) {
		panic(ErrReentrantCheckpoint)
	}
	defer m.walking.Store(false)

	m.mu.Lock()
	holders := m.namesLocked()
	m.forced = false
	m.mu.Unlock()

	m.suspended.Store(true)
	notified := hierarchy.NotifySuspend(m.tree)
	clock := m.sched.Now()
	logrus.Infof("[tick %07d] Simulation suspended by %s (%d components notified)",
		clock, strings.Join(holders, ", "), notified)
	m.trace.Record(trace.TransitionRecord{
		Kind:     trace.KindSuspend,
		Clock:    clock,
		Wall:     time.Now(),
		Holders:  holders,
		Notified: notified,
	})

	m.engine.Unlock()
	m.mu.Lock()
	for m.active.Len() > 0 {
		m.quiescent.Wait()
	}
	forced := m.forced
	m.forced = false
	// Take the engine lock before any new request can register, so a
	// confirmed activation arriving now waits for the next suspension.
	m.engine.Lock()
	m.mu.Unlock()

	notified = hierarchy.NotifyResume(m.tree)
	m.suspended.Store(false)

	logrus.Infof("[tick %07d] Simulation resumed (%d components notified, forced=%t)",
		clock, notified, forced)
	m.trace.Record(trace.TransitionRecord{
		Kind:     trace.KindResume,
		Clock:    clock,
		Wall:     time.Now(),
		Holders:  holders,
		Notified: notified,
		Forced:   forced,
	})
}

// namesLocked returns the active handle names, oldest first. Caller holds mu.
func (m *Manager) namesLocked() []string {
	names := make([]string, 0, m.active.Len())
	for e := m.active.Front(); e != nil; e = e.Next() {
		names = append(names, e.Value.(*Handle).name)
	}
	return names
}
