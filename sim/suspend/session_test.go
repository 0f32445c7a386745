package suspend

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/pausesim/sim"
	"github.com/inference-sim/pausesim/sim/internal/testutil"
	"github.com/inference-sim/pausesim/sim/trace"
)

var (
	wantSuspendOrder = []string{"suspend:soc.cpu", "suspend:soc.bus.dma", "suspend:soc"}
	wantResumeOrder  = []string{"resume:soc.cpu", "resume:soc.bus.dma", "resume:soc"}
)

func allSuspends(nodes []*testutil.SessionNode, n int64) bool {
	for _, node := range nodes {
		if node.Suspends() != n {
			return false
		}
	}
	return true
}

func allResumes(nodes []*testutil.SessionNode, n int64) bool {
	for _, node := range nodes {
		if node.Resumes() != n {
			return false
		}
	}
	return true
}

func runAsync(s *sim.Simulator) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run()
	}()
	return done
}

func TestSession_SingleHolder_SuspendThenResumeInOrder(t *testing.T) {
	// GIVEN a three-node session tree and handle A activated at tick 10
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	st := trace.NewSessionTrace(trace.TraceLevelTransitions)
	m := NewManager(s, tree, WithTrace(st))
	a := NewHandle(m, nil, "A")
	s.ScheduleAt(10, func(*sim.Simulator) {
		assert.NoError(t, a.Activate(false))
	})
	s.ScheduleAt(20, func(*sim.Simulator) {})

	// WHEN the loop reaches the checkpoint after tick 10
	done := runAsync(s)
	require.Eventually(t, func() bool { return allSuspends(nodes, 1) }, testutil.WaitTimeout, time.Millisecond)

	// THEN the pause walk ran children before parents and time is frozen
	assert.Equal(t, wantSuspendOrder, log.Calls())
	assert.True(t, m.Suspended())
	assert.Equal(t, int64(10), s.Now())
	assert.Eventually(t, func() bool { return m.Current() == a }, testutil.WaitTimeout, time.Millisecond)

	// WHEN A releases
	a.Release()
	testutil.WaitClosed(t, done, "simulation to finish")

	// THEN the resume walk ran on the same nodes in the same order and the loop finished
	assert.Equal(t, append(append([]string{}, wantSuspendOrder...), wantResumeOrder...), log.Calls())
	assert.False(t, m.Suspended())
	assert.Equal(t, int64(20), s.Now())
	recs := st.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, trace.KindSuspend, recs[0].Kind)
	assert.Equal(t, []string{"A"}, recs[0].Holders)
	assert.Equal(t, 3, recs[0].Notified)
	assert.Equal(t, int64(10), recs[0].Clock)
	assert.Equal(t, trace.KindResume, recs[1].Kind)
	assert.False(t, recs[1].Forced)
}

func TestSession_TwoHolders_ResumeOnlyAfterBoth(t *testing.T) {
	// GIVEN handles A and B both activated at tick 10
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	st := trace.NewSessionTrace(trace.TraceLevelTransitions)
	m := NewManager(s, tree, WithTrace(st))
	a := NewHandle(m, nil, "A")
	b := NewHandle(m, nil, "B")
	s.ScheduleAt(10, func(*sim.Simulator) {
		assert.NoError(t, a.Activate(false))
		assert.NoError(t, b.Activate(false))
	})
	s.ScheduleAt(20, func(*sim.Simulator) {})
	done := runAsync(s)
	require.Eventually(t, func() bool { return allSuspends(nodes, 1) }, testutil.WaitTimeout, time.Millisecond)
	assert.Eventually(t, func() bool { return m.Current() == a }, testutil.WaitTimeout, time.Millisecond)

	// WHEN A releases first
	a.Release()

	// THEN nothing changes: the loop stays suspended
	assert.Never(t, func() bool { return !m.Suspended() }, 50*time.Millisecond, 5*time.Millisecond)
	assert.True(t, allResumes(nodes, 0))
	assert.Equal(t, 1, m.Count())
	assert.Eventually(t, func() bool { return m.Current() == b }, testutil.WaitTimeout, time.Millisecond)

	// WHEN B releases
	b.Release()
	testutil.WaitClosed(t, done, "simulation to finish")

	// THEN the loop resumed exactly once
	assert.True(t, allResumes(nodes, 1))
	assert.True(t, allSuspends(nodes, 1))
	summary := trace.Summarize(st)
	assert.Equal(t, 1, summary.Suspends)
	assert.Equal(t, 1, summary.Resumes)
	assert.Equal(t, 2, summary.MaxHolders)
}

func TestSession_NHolders_StaySuspendedUntilAllRelease(t *testing.T) {
	// GIVEN N handles activated with confirmation from N goroutines
	const n = 6
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	m := NewManager(s, tree)
	testutil.StartLoop(t, s)

	handles := make([]*Handle, n)
	var wg sync.WaitGroup
	for i := range handles {
		handles[i] = NewHandle(m, nil, "h")
		wg.Add(1)
		go func(h *Handle) {
			defer wg.Done()
			assert.NoError(t, h.Activate(true))
		}(handles[i])
	}
	wg.Wait()
	require.True(t, m.Suspended())
	require.Equal(t, n, m.Count())

	// WHEN all but one release, in random order
	rng := rand.New(rand.NewSource(7))
	rng.Shuffle(n, func(i, j int) { handles[i], handles[j] = handles[j], handles[i] })
	for _, h := range handles[:n-1] {
		h.Release()
	}

	// THEN the loop is still suspended
	assert.Never(t, func() bool { return !m.Suspended() }, 50*time.Millisecond, 5*time.Millisecond)
	assert.True(t, allResumes(nodes, 0))

	// WHEN the last one releases
	handles[n-1].Release()

	// THEN the loop resumes once, after a single suspension
	require.Eventually(t, func() bool { return allResumes(nodes, 1) }, testutil.WaitTimeout, time.Millisecond)
	assert.True(t, allSuspends(nodes, 1))
	assert.Eventually(t, func() bool { return !m.Suspended() }, testutil.WaitTimeout, time.Millisecond)
}

func TestSession_ConfirmedActivate_ReturnsAfterPauseWalk(t *testing.T) {
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	m := NewManager(s, tree)
	testutil.StartLoop(t, s)
	h := NewHandle(m, nil, "gdb")

	for i := int64(1); i <= 5; i++ {
		// WHEN a non-loop goroutine activates with confirmation
		require.NoError(t, h.Activate(true))

		// THEN every on_suspend of this round already ran
		assert.True(t, allSuspends(nodes, i), "round %d", i)
		assert.True(t, m.Suspended(), "round %d", i)
		frozen := s.Now()

		h.Release()
		require.Eventually(t, func() bool { return allResumes(nodes, i) }, testutil.WaitTimeout, time.Millisecond)
		require.Eventually(t, func() bool { return s.Now() > frozen }, testutil.WaitTimeout, time.Millisecond)
	}
}

func TestSession_ConfirmedActivateOnLoop_DoesNotDeadlock(t *testing.T) {
	// GIVEN an event that activates with confirmation on the loop goroutine
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	m := NewManager(s, tree)
	h := NewHandle(m, nil, "self")
	returned := make(chan struct{})
	s.ScheduleAt(5, func(*sim.Simulator) {
		assert.NoError(t, h.Activate(true))
		close(returned)
	})

	// WHEN the loop runs
	done := runAsync(s)

	// THEN Activate returns immediately and the following checkpoint suspends
	testutil.WaitClosed(t, returned, "loop-side Activate to return")
	require.Eventually(t, func() bool { return allSuspends(nodes, 1) }, testutil.WaitTimeout, time.Millisecond)
	h.Release()
	testutil.WaitClosed(t, done, "simulation to finish")
	assert.True(t, allResumes(nodes, 1))
}

func TestSession_ForceResume_DrivesLoopToRunning(t *testing.T) {
	// GIVEN two confirmed holders
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	st := trace.NewSessionTrace(trace.TraceLevelTransitions)
	m := NewManager(s, tree, WithTrace(st))
	testutil.StartLoop(t, s)
	a := NewHandle(m, nil, "A")
	b := NewHandle(m, nil, "B")
	require.NoError(t, a.Activate(true))
	require.NoError(t, b.Activate(false))
	require.NoError(t, b.Activate(false))
	frozen := s.Now()

	// WHEN the registry is force-cleared
	m.ForceResume()

	// THEN the loop resumes and time advances again
	require.Eventually(t, func() bool { return allResumes(nodes, 1) }, testutil.WaitTimeout, time.Millisecond)
	require.Eventually(t, func() bool { return s.Now() > frozen }, testutil.WaitTimeout, time.Millisecond)
	assert.Equal(t, 0, m.Count())
	assert.False(t, m.Suspended())

	// THEN the stray releases are no-ops
	assert.NotPanics(t, a.Release)
	assert.NotPanics(t, b.Release)
	assert.NotPanics(t, b.Release)
	assert.True(t, allSuspends(nodes, 1))

	recs := st.Records()
	require.Len(t, recs, 2)
	assert.True(t, recs[1].Forced)
}

func TestSession_CallbacksMayUseHandles(t *testing.T) {
	// GIVEN a component that takes its own hold while being suspended
	var log testutil.CallLog
	tree, nodes := testutil.ThreeNodeTree(&log)
	s := sim.NewSimulator(0)
	m := NewManager(s, tree)
	own := NewHandle(m, nodes[2], "session")
	nodes[2].SuspendFn = func() {
		if own.Depth() == 0 {
			assert.NoError(t, own.Activate(false))
		}
	}
	a := NewHandle(m, nil, "A")
	s.ScheduleAt(1, func(*sim.Simulator) { assert.NoError(t, a.Activate(false)) })
	done := runAsync(s)
	require.Eventually(t, func() bool { return allSuspends(nodes, 1) }, testutil.WaitTimeout, time.Millisecond)
	require.Eventually(t, own.IsActive, testutil.WaitTimeout, time.Millisecond)

	// WHEN the external holder releases
	a.Release()

	// THEN the component's own hold keeps the loop suspended
	assert.Never(t, func() bool { return !m.Suspended() }, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, "soc.session", own.Name())

	// WHEN the component's hold is dropped
	own.Release()
	testutil.WaitClosed(t, done, "simulation to finish")
	assert.True(t, allResumes(nodes, 1))
}

func TestSession_ActivateAfterRunEnds_EngineNotRunning(t *testing.T) {
	// GIVEN a simulation that has finished
	s := sim.NewSimulator(0)
	s.ScheduleAt(1, func(*sim.Simulator) {})
	m := NewManager(s, nil)
	s.Run()
	h := NewHandle(m, nil, "late")

	// WHEN a handle is activated
	err := h.Activate(true)

	// THEN it fails fast and the active set is unchanged
	assert.True(t, errors.Is(err, ErrEngineNotRunning))
	assert.Equal(t, 0, m.Count())
}

func TestSession_ConcurrentHolders_NoLostWakeups(t *testing.T) {
	// GIVEN several goroutines repeatedly taking and dropping holds
	s := sim.NewSimulator(0)
	m := NewManager(s, nil)
	testutil.StartLoop(t, s)

	const workers, rounds = 8, 40
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			h := NewHandle(m, nil, "worker")
			for r := 0; r < rounds; r++ {
				confirm := (w+r)%2 == 0
				if !assert.NoError(t, h.Activate(confirm)) {
					return
				}
				if r%3 == 0 {
					assert.NoError(t, h.Activate(false))
					h.Release()
				}
				h.Release()
			}
			assert.NoError(t, h.Close())
			assert.Equal(t, 0, h.Depth())
		}(w)
	}

	// WHEN all workers finish
	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	testutil.WaitClosed(t, finished, "workers to finish")

	// THEN the registry is empty and the loop is running again
	assert.Equal(t, 0, m.Count())
	assert.Eventually(t, func() bool { return !m.Suspended() }, testutil.WaitTimeout, time.Millisecond)
	frozen := s.Now()
	assert.Eventually(t, func() bool { return s.Now() > frozen }, testutil.WaitTimeout, time.Millisecond)
}
