package sim

import "github.com/sirupsen/logrus"

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Execute(*Simulator)
}

// FuncEvent runs an arbitrary callback at a fixed tick.
type FuncEvent struct {
	time int64
	fn   func(*Simulator)
}

// NewFuncEvent wraps fn as an Event firing at time t.
func NewFuncEvent(t int64, fn func(*Simulator)) *FuncEvent {
	return &FuncEvent{time: t, fn: fn}
}

// Timestamp returns the scheduled time of the FuncEvent.
func (e *FuncEvent) Timestamp() int64 {
	return e.time
}

// Execute invokes the wrapped callback.
func (e *FuncEvent) Execute(sim *Simulator) {
	e.fn(sim)
}

// Ticker is a periodic event source. Each firing invokes its callback and
// reschedules itself one period later, so the loop keeps reaching safe
// points until the horizon or Stop.
type Ticker struct {
	time   int64
	period int64
	fn     func(*Simulator)
	fired  int64
}

// NewTicker creates a Ticker whose first firing is at the given period.
// Panics if period < 1.
func NewTicker(period int64, fn func(*Simulator)) *Ticker {
	if period < 1 {
		panic("Ticker: period must be >= 1")
	}
	return &Ticker{time: period, period: period, fn: fn}
}

// Timestamp returns the next firing time of the Ticker.
func (e *Ticker) Timestamp() int64 {
	return e.time
}

// Fired returns how many times the Ticker has executed.
func (e *Ticker) Fired() int64 {
	return e.fired
}

// Execute runs the callback and reschedules the Ticker.
func (e *Ticker) Execute(sim *Simulator) {
	logrus.Tracef("<< Tick at %d ticks", e.time)
	e.fired++
	if e.fn != nil {
		e.fn(sim)
	}
	e.time += e.period
	sim.Schedule(e)
}
