// Package testutil provides shared test infrastructure for the simulator:
// recording session-aware components, a scripted scheduler, and helpers
// that keep a live simulation loop running for the duration of a test.
package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/inference-sim/pausesim/sim/hierarchy"
)

// CallLog is a goroutine-safe, ordered log of session callbacks.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

// Calls returns a copy of the log, e.g. ["suspend:soc.cpu", "suspend:soc"].
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// Reset clears the log.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

// SessionNode is a session-aware component that records every callback.
type SessionNode struct {
	*hierarchy.Module

	Log *CallLog
	// Optional extra work run inside the callback, after logging.
	SuspendFn func()
	ResumeFn  func()

	suspends atomic.Int64
	resumes  atomic.Int64
}

// NewSessionNode creates a SessionNode logging into log.
func NewSessionNode(name string, log *CallLog) *SessionNode {
	return &SessionNode{Module: hierarchy.NewModule(name), Log: log}
}

// OnSuspend implements hierarchy.SessionAware.
// The counter is bumped last, so a caller that observes it also sees
// the log entry and the effects of SuspendFn.
func (n *SessionNode) OnSuspend() {
	if n.Log != nil {
		n.Log.add("suspend:" + n.Name())
	}
	if n.SuspendFn != nil {
		n.SuspendFn()
	}
	n.suspends.Add(1)
}

// OnResume implements hierarchy.SessionAware.
func (n *SessionNode) OnResume() {
	if n.Log != nil {
		n.Log.add("resume:" + n.Name())
	}
	if n.ResumeFn != nil {
		n.ResumeFn()
	}
	n.resumes.Add(1)
}

// Suspends returns the number of OnSuspend calls.
func (n *SessionNode) Suspends() int64 { return n.suspends.Load() }

// Resumes returns the number of OnResume calls.
func (n *SessionNode) Resumes() int64 { return n.resumes.Load() }

// ThreeNodeTree builds soc{cpu, bus(plain){dma}} where soc, cpu and dma
// are session-aware. The children-before-parent order for the session
// nodes is cpu, dma, soc.
func ThreeNodeTree(log *CallLog) (*hierarchy.Tree, []*SessionNode) {
	soc := NewSessionNode("soc", log)
	cpu := NewSessionNode("cpu", log)
	bus := hierarchy.NewModule("bus")
	dma := NewSessionNode("dma", log)
	bus.Add(dma)
	soc.Add(cpu, bus)
	return hierarchy.NewTree(soc), []*SessionNode{cpu, dma, soc}
}
