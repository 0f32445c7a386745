// Package suspend lets any number of goroutines pause the cooperative
// simulation loop at a safe point and hold it paused until every holder
// has released.
//
// # Protocol
//
// A client owns a Handle and calls Activate to request a pause. The
// Manager records the handle in its active set. At the next checkpoint
// the loop goroutine sees a non-empty set, notifies every session-aware
// component (children before parents), releases the engine lock and
// blocks until the active set is empty. The last Release wakes the loop,
// which notifies the components again, re-acquires the engine lock and
// continues simulating.
//
// Activate(true) from any goroutine other than the loop blocks on the
// engine lock, so it returns only after the suspend walk has finished.
// The loop goroutine itself never blocks in Activate.
//
// # Locks
//
// Two primitives are kept separate. The registry lock guards the active
// set and is held for O(1) work only; the engine lock is held by the loop
// for the whole time it is running and released only while suspended.
// Component callbacks run with neither lock held, so they may activate or
// release handles.
package suspend
