package trace

import "sync"

// TraceLevel controls the verbosity of session tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelTransitions captures every suspend and resume transition.
	TraceLevelTransitions TraceLevel = "transitions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelTransitions: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// SessionTrace collects transition records. Records may be appended from
// the loop goroutine while other goroutines read them.
type SessionTrace struct {
	Level TraceLevel

	mu      sync.Mutex
	records []TransitionRecord
}

// NewSessionTrace creates a SessionTrace ready for recording.
func NewSessionTrace(level TraceLevel) *SessionTrace {
	return &SessionTrace{
		Level:   level,
		records: make([]TransitionRecord, 0),
	}
}

// Enabled reports whether records are kept. Safe on a nil trace.
func (st *SessionTrace) Enabled() bool {
	return st != nil && st.Level == TraceLevelTransitions
}

// Record appends a transition record. No-op unless Enabled.
func (st *SessionTrace) Record(record TransitionRecord) {
	if !st.Enabled() {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.records = append(st.records, record)
}

// Records returns a copy of the recorded transitions in order.
func (st *SessionTrace) Records() []TransitionRecord {
	if st == nil {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]TransitionRecord, len(st.records))
	copy(out, st.records)
	return out
}

// Len returns the number of recorded transitions.
func (st *SessionTrace) Len() int {
	if st == nil {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.records)
}
