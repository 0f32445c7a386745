package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/pausesim/sim"
	"github.com/inference-sim/pausesim/sim/hierarchy"
	"github.com/inference-sim/pausesim/sim/suspend"
	"github.com/inference-sim/pausesim/sim/trace"
)

// drainTimeout bounds how long requesters may outlive the simulation loop.
const drainTimeout = 2 * time.Second

// Report is the outcome of one scenario run.
type Report struct {
	Steps      int
	FinalClock int64
	Wall       time.Duration
	Failed     int // requesters that could not activate
	Abandoned  int // requesters still blocked after the loop exited
	Trace      *trace.SessionTrace
	Summary    *trace.TraceSummary
}

// runScenario builds the tree and manager for sc, runs the loop on the
// calling goroutine, and waits for every requester to finish.
// Transitions are always recorded; the scenario's trace level only decides
// whether they are printed.
func runScenario(sc *Scenario) *Report {
	tree, _ := buildTree(sc.Components)
	s := sim.NewSimulator(sc.Horizon)
	st := trace.NewSessionTrace(trace.TraceLevelTransitions)
	mgr := suspend.NewManager(s, tree, suspend.WithTrace(st))
	s.Schedule(sim.NewTicker(sc.Tick, nil))

	var wg sync.WaitGroup
	var failed atomic.Int64
	for _, spec := range sc.Requesters {
		var owner hierarchy.Node
		if spec.Owner != "" {
			owner, _ = tree.Find(spec.Owner)
		}
		h := suspend.NewHandle(mgr, owner, spec.Name)
		r := &requester{spec: spec, handle: h, wg: &wg, failed: &failed}
		r.start(s)
	}

	start := time.Now()
	s.Run()
	wall := time.Since(start)

	abandoned := 0
	if !waitGroupTimeout(&wg, drainTimeout) {
		abandoned = mgr.Count()
		logrus.Warnf("%d requesters still pending after the simulation ended", abandoned)
		mgr.ForceResume()
	}

	return &Report{
		Steps:      s.StepCount(),
		FinalClock: s.Now(),
		Wall:       wall,
		Failed:     int(failed.Load()),
		Abandoned:  abandoned,
		Trace:      st,
		Summary:    trace.Summarize(st),
	}
}

// requester plays one RequesterSpec against a handle.
type requester struct {
	spec   RequesterSpec
	handle *suspend.Handle
	wg     *sync.WaitGroup
	failed *atomic.Int64
}

func (r *requester) start(s *sim.Simulator) {
	if r.spec.At > 0 {
		// Activated on the loop goroutine, so the checkpoint right after
		// this event suspends; the hold runs on a separate goroutine.
		s.ScheduleAt(r.spec.At, func(*sim.Simulator) {
			if !r.activate(false) {
				return
			}
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.holdAndRelease()
			}()
		})
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		time.Sleep(r.spec.After)
		if r.activate(r.spec.Confirm) {
			r.holdAndRelease()
		}
	}()
}

// activate takes Depth nested holds. Only the first activation may confirm.
func (r *requester) activate(confirm bool) bool {
	for i := 0; i < r.spec.Depth; i++ {
		if err := r.handle.Activate(confirm && i == 0); err != nil {
			if errors.Is(err, suspend.ErrEngineNotRunning) {
				logrus.Warnf("requester %s: %v", r.handle.Name(), err)
			} else {
				logrus.Errorf("requester %s: %v", r.handle.Name(), err)
			}
			r.failed.Add(1)
			// undo the holds already taken
			for ; i > 0; i-- {
				r.handle.Release()
			}
			return false
		}
	}
	logrus.Infof("requester %s: holding (depth %d) for %v", r.handle.Name(), r.spec.Depth, r.spec.Hold)
	return true
}

func (r *requester) holdAndRelease() {
	time.Sleep(r.spec.Hold)
	for i := 0; i < r.spec.Depth; i++ {
		r.handle.Release()
	}
	logrus.Infof("requester %s: released", r.handle.Name())
}

// waitGroupTimeout waits for wg and reports whether it finished in time.
func waitGroupTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// Print writes a human-readable summary of the run, followed by every
// transition when withTrace is set.
func (r *Report) Print(w io.Writer, withTrace bool) {
	fmt.Fprintln(w, "=== Session Summary ===")
	fmt.Fprintf(w, "Steps                : %d\n", r.Steps)
	fmt.Fprintf(w, "Final Clock          : %d ticks\n", r.FinalClock)
	fmt.Fprintf(w, "Wall Time            : %v\n", r.Wall.Round(time.Microsecond))
	fmt.Fprintf(w, "Suspensions          : %d\n", r.Summary.Suspends)
	fmt.Fprintf(w, "Resumes              : %d (forced %d)\n", r.Summary.Resumes, r.Summary.ForcedResumes)
	if r.Summary.Suspends > 0 {
		fmt.Fprintf(w, "Time Suspended       : %v (max %v)\n",
			r.Summary.TotalPaused.Round(time.Microsecond), r.Summary.MaxPaused.Round(time.Microsecond))
		fmt.Fprintf(w, "Max Concurrent Holds : %d\n", r.Summary.MaxHolders)
		names := make([]string, 0, len(r.Summary.HolderDistribution))
		for name := range r.Summary.HolderDistribution {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-18s : %d\n", name, r.Summary.HolderDistribution[name])
		}
	}
	if r.Failed > 0 {
		fmt.Fprintf(w, "Failed Requesters    : %d\n", r.Failed)
	}
	if r.Abandoned > 0 {
		fmt.Fprintf(w, "Abandoned Requesters : %d\n", r.Abandoned)
	}
	if !withTrace {
		return
	}
	fmt.Fprintln(w, "=== Transitions ===")
	for _, rec := range r.Trace.Records() {
		fmt.Fprintf(w, "[tick %07d] %-7s notified=%d holders=%s forced=%t\n",
			rec.Clock, rec.Kind, rec.Notified, strings.Join(rec.Holders, ","), rec.Forced)
	}
}
