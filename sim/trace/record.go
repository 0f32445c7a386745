// Package trace records suspend/resume transitions of a simulation session.
// This package has no dependencies on sim/ or its sub-packages: it stores pure data types.
package trace

import "time"

// Kind distinguishes the two edges of the suspend state machine.
type Kind string

const (
	KindSuspend Kind = "suspend"
	KindResume  Kind = "resume"
)

// TransitionRecord captures one suspend or resume transition.
type TransitionRecord struct {
	Kind     Kind
	Clock    int64     // simulated time at the checkpoint
	Wall     time.Time // wall-clock time the transition walk finished
	Holders  []string  // handle names active when the transition started
	Notified int       // session-aware nodes invoked by the walk
	Forced   bool      // resume caused by a force-resume rather than the last release
}
