package tasks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	fn      func()
	stopped bool
	fired   bool
}

// fakeScheduler records timers and fires them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ft := &fakeTimer{fn: f}
	s.timers = append(s.timers, ft)
	s.delays = append(s.delays, d)
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		wasPending := !ft.stopped && !ft.fired
		ft.stopped = true
		return wasPending
	}
}

// fireAll runs every timer that has not been stopped or fired.
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	var due []*fakeTimer
	for _, ft := range s.timers {
		if !ft.stopped && !ft.fired {
			ft.fired = true
			due = append(due, ft)
		}
	}
	s.mu.Unlock()
	for _, ft := range due {
		ft.fn()
	}
}

// fireStale runs timers even if they were stopped, as a timer that already
// fired concurrently with Stop would.
func (s *fakeScheduler) fireStale() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.timers))
	for _, ft := range s.timers {
		fns = append(fns, ft.fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

var kinds = []string{"tg", "tw", "yt"}

func newTestTracker() (*Tracker, *fakeScheduler) {
	sched := &fakeScheduler{}
	return NewTracker(kinds, 15*time.Second, WithScheduler(sched)), sched
}

func TestTracker_ResetSessionClearsFlags(t *testing.T) {
	tr, sched := newTestTracker()
	tr.ResetSession("g1")
	for _, k := range kinds {
		_, err := tr.StartTask(k, "https://t.me/x")
		require.NoError(t, err)
	}
	sched.fireAll()
	require.True(t, tr.AllTasksComplete())

	snap := tr.ResetSession("g1")
	assert.False(t, tr.AllTasksComplete())
	assert.Equal(t, map[string]bool{"tg": false, "tw": false, "yt": false}, snap.Tasks)
}

func TestTracker_OnlyStartedKindCompletes(t *testing.T) {
	tr, sched := newTestTracker()
	tr.ResetSession("g1")

	started, err := tr.StartTask("tw", "https://x.com/acc")
	require.NoError(t, err)
	assert.True(t, started)
	assert.False(t, tr.Snapshot().Tasks["tw"], "not verified before the delay")

	sched.fireAll()

	assert.Equal(t, map[string]bool{"tg": false, "tw": true, "yt": false}, tr.Snapshot().Tasks)
	assert.False(t, tr.AllTasksComplete())
	assert.Equal(t, []time.Duration{15 * time.Second}, sched.delays)
}

func TestTracker_StartTaskIdempotent(t *testing.T) {
	var opened []string
	sched := &fakeScheduler{}
	tr := NewTracker(kinds, time.Second, WithScheduler(sched), WithLinkOpener(func(kind, link string) {
		opened = append(opened, kind)
	}))
	tr.ResetSession("g1")

	_, err := tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)
	// повторный клик до срабатывания таймера
	_, err = tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)
	assert.Equal(t, 1, sched.count())

	sched.fireAll()
	started, err := tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, sched.count())
	assert.Equal(t, []string{"tg", "tg"}, opened)
}

func TestTracker_InvalidKind(t *testing.T) {
	tr, sched := newTestTracker()
	tr.ResetSession("g1")

	_, err := tr.StartTask("ig", "https://instagram.com")
	assert.ErrorIs(t, err, ErrInvalidTaskKind)
	assert.Zero(t, sched.count())
}

func TestTracker_NoSession(t *testing.T) {
	tr, _ := newTestTracker()
	_, err := tr.StartTask("tg", "https://t.me/c")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, tr.AllTasksComplete())
	assert.Empty(t, tr.GiveawayID())
}

func TestTracker_StaleTimerDoesNotLeakIntoNewSession(t *testing.T) {
	tr, sched := newTestTracker()
	tr.ResetSession("g1")
	_, err := tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)

	tr.ResetSession("g2")
	sched.fireStale()

	snap := tr.Snapshot()
	assert.Equal(t, "g2", snap.GiveawayID)
	assert.False(t, snap.Tasks["tg"])
}

func TestTracker_ReopenSameGiveawayGetsNewSession(t *testing.T) {
	tr, sched := newTestTracker()
	first := tr.ResetSession("g1")
	_, err := tr.StartTask("yt", "https://youtube.com/c")
	require.NoError(t, err)

	second := tr.ResetSession("g1")
	assert.NotEqual(t, first.SessionID, second.SessionID)

	sched.fireStale()
	assert.False(t, tr.Snapshot().Tasks["yt"])
}

func TestTracker_ListenerAndVerifiedIdempotent(t *testing.T) {
	type change struct {
		giveaway, kind string
		complete       bool
	}
	var changes []change
	sched := &fakeScheduler{}
	tr := NewTracker([]string{"tg"}, time.Second, WithScheduler(sched), WithListener(func(g, k string, c bool) {
		changes = append(changes, change{g, k, c})
	}))

	snap := tr.ResetSession("g1")
	_, err := tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)
	sched.fireAll()
	tr.onTaskVerified(snap.SessionID, "tg")

	assert.Equal(t, []change{{"g1", "tg", false}, {"g1", "tg", true}}, changes)
	assert.True(t, tr.AllTasksComplete())
}

func TestTracker_CloseStopsTimers(t *testing.T) {
	tr, sched := newTestTracker()
	tr.ResetSession("g1")
	_, err := tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)

	tr.Close()
	sched.fireAll()
	assert.False(t, tr.AllTasksComplete())
	assert.Empty(t, tr.GiveawayID())
}

func TestTracker_RealScheduler(t *testing.T) {
	tr := NewTracker([]string{"tg"}, 10*time.Millisecond)
	tr.ResetSession("g1")
	_, err := tr.StartTask("tg", "https://t.me/c")
	require.NoError(t, err)

	assert.Eventually(t, tr.AllTasksComplete, time.Second, 5*time.Millisecond)
}

func TestTracker_AllTasksCompleteFor(t *testing.T) {
	tr, sched := newTestTracker()
	tr.ResetSession("g1")
	for _, k := range kinds {
		_, err := tr.StartTask(k, "https://t.me/x")
		require.NoError(t, err)
	}
	sched.fireAll()

	assert.True(t, tr.AllTasksCompleteFor("g1"))
	assert.False(t, tr.AllTasksCompleteFor("g2"))
}
