// sim/simulator.go
package sim

import (
	"container/heap"
	"math"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// queued pairs an event with its schedule order, the tie-breaker for
// events sharing a timestamp.
type queued struct {
	ev  Event
	seq uint64
}

// EventQueue implements heap.Interface and orders events by timestamp,
// then by the order in which they were scheduled.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type EventQueue []queued

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].ev.Timestamp() != eq[j].ev.Timestamp() {
		return eq[i].ev.Timestamp() < eq[j].ev.Timestamp()
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(queued))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Simulator is the cooperative, single-goroutine event loop. Events and
// checkpoint hooks only ever run on the goroutine executing Run.
//
// Thread safety: Schedule and OnCheckpoint must be called from the loop
// goroutine or before Run. Stop, IsRunning, OnLoopGoroutine and Now are
// safe from any goroutine.
type Simulator struct {
	Horizon int64

	queue EventQueue
	seq   uint64
	steps int

	mu    sync.Mutex
	hooks []func()

	clock   atomic.Int64
	running atomic.Bool
	stopped atomic.Bool
	loopID  atomic.Uint64
}

// NewSimulator creates a Simulator that ends once its clock passes horizon.
// A horizon <= 0 means unbounded.
func NewSimulator(horizon int64) *Simulator {
	if horizon <= 0 {
		horizon = math.MaxInt64
	}
	return &Simulator{
		Horizon: horizon,
		queue:   make(EventQueue, 0),
	}
}

// Schedule pushes an event into the simulator's EventQueue.
func (sim *Simulator) Schedule(ev Event) {
	sim.seq++
	heap.Push(&sim.queue, queued{ev: ev, seq: sim.seq})
}

// ScheduleAt schedules fn to run at tick t.
func (sim *Simulator) ScheduleAt(t int64, fn func(*Simulator)) {
	sim.Schedule(NewFuncEvent(t, fn))
}

// OnCheckpoint registers fn to run at every safe point, i.e. after each
// executed event. Hooks run in registration order on the loop goroutine.
func (sim *Simulator) OnCheckpoint(fn func()) {
	sim.mu.Lock()
	defer sim.mu.Unlock()
	sim.hooks = append(sim.hooks, fn)
}

// Run executes events in timestamp order until the queue drains, the clock
// passes the horizon, or Stop is called.
// Panics if the simulator is already running.
func (sim *Simulator) Run() {
	if !sim.running.CompareAndSwap(false, true) {
		panic("Simulator.Run() called while already running")
	}
	sim.loopID.Store(goroutineID())
	defer func() {
		sim.loopID.Store(0)
		sim.stopped.Store(false)
		sim.running.Store(false)
	}()

	logrus.Infof("[tick %07d] Simulation started, %d events pending", sim.Now(), len(sim.queue))
	for len(sim.queue) > 0 && !sim.stopped.Load() {
		// get the next event to be simulated
		ev := heap.Pop(&sim.queue).(queued).ev
		// advance the clock
		sim.clock.Store(ev.Timestamp())
		logrus.Debugf("[tick %07d] Executing %T", sim.Now(), ev)
		// process the event
		ev.Execute(sim)
		sim.steps++
		sim.checkpoint()
		// end the simulation if horizon is reached
		if sim.Now() > sim.Horizon {
			break
		}
	}
	logrus.Infof("[tick %07d] Simulation ended after %d steps", sim.Now(), sim.steps)
}

func (sim *Simulator) checkpoint() {
	sim.mu.Lock()
	hooks := sim.hooks
	sim.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Stop asks the loop to exit at its next safe point. A Stop issued while
// the simulator is idle applies to the next Run.
func (sim *Simulator) Stop() {
	sim.stopped.Store(true)
}

// IsRunning reports whether Run is executing, including while a checkpoint
// hook blocks.
func (sim *Simulator) IsRunning() bool {
	return sim.running.Load()
}

// OnLoopGoroutine reports whether the caller is the goroutine executing Run.
func (sim *Simulator) OnLoopGoroutine() bool {
	id := sim.loopID.Load()
	if id == 0 {
		return false
	}
	return goroutineID() == id
}

// Now returns the current simulated clock in ticks.
func (sim *Simulator) Now() int64 {
	return sim.clock.Load()
}

// StepCount returns the number of executed events.
func (sim *Simulator) StepCount() int {
	return sim.steps
}

// Pending returns the number of queued events.
func (sim *Simulator) Pending() int {
	return len(sim.queue)
}
