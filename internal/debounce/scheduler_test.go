package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_CoalescesBurst(t *testing.T) {
	t.Parallel()

	s := New("search", nil)
	var runs atomic.Int32
	var last atomic.Value

	for _, term := range []string{"l", "la", "lap", "lapt"} {
		term := term
		s.Schedule(func() {
			runs.Add(1)
			last.Store(term)
		}, 50*time.Millisecond)
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "superseded actions must never run")
	assert.Equal(t, "lapt", last.Load())
	assert.Equal(t, Idle, s.State())
}

func TestScheduler_StateMachine(t *testing.T) {
	t.Parallel()

	s := New("filters", nil)
	assert.Equal(t, Idle, s.State())

	fired := make(chan struct{}, 1)
	s.Schedule(func() { fired <- struct{}{} }, 20*time.Millisecond)
	assert.Equal(t, Armed, s.State())

	// rearm while armed
	s.Schedule(func() { fired <- struct{}{} }, 20*time.Millisecond)
	assert.Equal(t, Armed, s.State())

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("action did not fire")
	}
	require.Eventually(t, func() bool { return s.State() == Idle }, time.Second, time.Millisecond)
}

func TestScheduler_CancelPendingIsIdempotent(t *testing.T) {
	t.Parallel()

	s := New("pages", nil)
	var runs atomic.Int32
	s.Schedule(func() { runs.Add(1) }, 15*time.Millisecond)

	s.CancelPending()
	s.CancelPending()
	assert.Equal(t, Idle, s.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())

	// cancelling an idle scheduler is fine too
	assert.NotPanics(t, s.CancelPending)
}

func TestScheduler_RunNowCancelsPending(t *testing.T) {
	t.Parallel()

	s := New("reset", nil)
	var pending, immediate atomic.Int32
	s.Schedule(func() { pending.Add(1) }, 15*time.Millisecond)

	s.RunNow(func() { immediate.Add(1) })
	assert.Equal(t, int32(1), immediate.Load())
	assert.Equal(t, Idle, s.State())

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), pending.Load())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "armed", Armed.String())
}
