// Package sim provides the cooperative discrete-event kernel for pausesim.
//
// # Reading Guide
//
//   - event.go: the Event interface, one-shot FuncEvents and periodic Tickers
//   - simulator.go: the event queue, the loop and its checkpoint hooks
//
// # Architecture
//
// The kernel only knows about events and checkpoints; the rest lives in
// sub-packages:
//   - sim/hierarchy/: named component trees and the session notification walk
//   - sim/suspend/: handles and the manager that parks the loop between events
//   - sim/trace/: transition recording and summaries
//
// # Checkpoints
//
// After every event the loop runs each hook registered with OnCheckpoint, in
// registration order, on the loop goroutine. A hook may block; while it does
// the clock does not advance and IsRunning keeps reporting true. This is the
// only place the loop may be suspended.
package sim
