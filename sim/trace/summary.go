package trace

import "time"

// TraceSummary aggregates statistics from a SessionTrace.
type TraceSummary struct {
	Suspends      int
	Resumes       int
	ForcedResumes int
	TotalPaused   time.Duration // wall-clock time between paired suspend and resume
	MaxPaused     time.Duration
	MaxHolders    int
	// HolderDistribution maps a handle name to the number of suspensions it held.
	HolderDistribution map[string]int
}

// Summarize computes aggregate statistics from a SessionTrace.
// Safe for nil or empty traces (returns zero-value fields).
// A trailing suspend without a matching resume contributes no paused time.
func Summarize(st *SessionTrace) *TraceSummary {
	summary := &TraceSummary{
		HolderDistribution: make(map[string]int),
	}
	var pausedAt time.Time
	for _, r := range st.Records() {
		switch r.Kind {
		case KindSuspend:
			summary.Suspends++
			pausedAt = r.Wall
			if len(r.Holders) > summary.MaxHolders {
				summary.MaxHolders = len(r.Holders)
			}
			for _, h := range r.Holders {
				summary.HolderDistribution[h]++
			}
		case KindResume:
			summary.Resumes++
			if r.Forced {
				summary.ForcedResumes++
			}
			if !pausedAt.IsZero() {
				d := r.Wall.Sub(pausedAt)
				summary.TotalPaused += d
				if d > summary.MaxPaused {
					summary.MaxPaused = d
				}
				pausedAt = time.Time{}
			}
		}
	}
	return summary
}
