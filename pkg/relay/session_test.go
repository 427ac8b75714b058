// ABOUTME: Tests for the broadcast session controller
// ABOUTME: Start/stop/forced-stop transitions, clear-before-open and deferred refresh
package relay

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUpstream struct {
	calls atomic.Int32
	err   error
}

func (u *countingUpstream) RequestForceStop() error {
	u.calls.Add(1)
	return u.err
}

type countingRefresher struct {
	calls atomic.Int32
}

func (r *countingRefresher) Refresh() {
	r.calls.Add(1)
}

type sessionFixture struct {
	backend   *fakeBackend
	queue     *Queue
	sink      *Sink
	rec       *Reconciler
	upstream  *countingUpstream
	refresher *countingRefresher
	clock     *clockwork.FakeClock
	ctrl      *SessionController
	cleared   int
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		backend:   &fakeBackend{},
		queue:     NewQueue(),
		upstream:  &countingUpstream{},
		refresher: &countingRefresher{},
		clock:     clockwork.NewFakeClock(),
	}
	f.sink = NewSink(f.backend, nopNotifier{}, nil)
	f.rec = NewReconciler(f.queue, f.sink, 0, ReconcilerHooks{}, nil)
	f.ctrl = NewSessionController(f.queue, f.sink, f.rec, f.upstream, f.refresher, f.clock, DefaultRefreshDelay, nil)
	f.ctrl.OnCleared = func(n int) { f.cleared += n }
	return f
}

func TestSessionStartOpensSink(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "Morning Show", Date: "2024-05-01", StartTime: "08:00"}))

	s := f.ctrl.Session()
	assert.True(t, s.Active)
	assert.Equal(t, "Morning Show", s.Broadcast.Title)
	assert.Equal(t, f.clock.Now(), s.StartedAt)
	assert.Equal(t, SinkOpening, f.sink.State())
	assert.Len(t, f.backend.opened, 1)
}

func TestSessionDuplicateStartIgnored(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "First"}))
	h := f.sink.Handle()
	f.queue.Enqueue(Fragment("keep"))

	err := f.ctrl.Started(Broadcast{Title: "Second"})
	assert.ErrorIs(t, err, ErrDuplicateSessionStart)

	assert.Equal(t, "First", f.ctrl.Session().Broadcast.Title)
	assert.Equal(t, h, f.sink.Handle())
	assert.Equal(t, 1, f.queue.Len())
	assert.Len(t, f.backend.opened, 1)
}

func TestSessionStopWithoutSession(t *testing.T) {
	f := newSessionFixture()
	f.queue.Enqueue(Fragment("x"))

	err := f.ctrl.Stopped()
	assert.ErrorIs(t, err, ErrStopWithNoSession)

	assert.False(t, f.ctrl.Session().Active)
	assert.Equal(t, SinkAbsent, f.sink.State())
	assert.Equal(t, 1, f.queue.Len())

	f.clock.Advance(2 * DefaultRefreshDelay)
	assert.Zero(t, f.refresher.calls.Load())
}

func TestSessionStopClosesSinkAndKeepsQueue(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "Evening"}))
	h := f.sink.Handle()
	f.queue.Enqueue(Fragment("tail"))

	require.NoError(t, f.ctrl.Stopped())

	assert.False(t, f.ctrl.Session().Active)
	assert.Equal(t, SinkClosed, f.sink.State())
	assert.Equal(t, []Handle{h}, f.backend.closedHandles())
	// Clearing happens on the next start, not on stop
	assert.Equal(t, 1, f.queue.Len())
}

func TestSessionStopSchedulesRefresh(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "Evening"}))
	require.NoError(t, f.ctrl.Stopped())

	f.clock.Advance(DefaultRefreshDelay / 2)
	assert.Zero(t, f.refresher.calls.Load())

	f.clock.Advance(DefaultRefreshDelay)
	require.Eventually(t, func() bool {
		return f.refresher.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

// Scenario 4: fragments from a prior session are cleared before the new sink opens.
func TestSessionStartClearsBeforeOpen(t *testing.T) {
	f := newSessionFixture()

	f.queue.Enqueue(Fragment("X"))
	f.queue.Enqueue(Fragment("Y"))

	queuedAtOpen := -1
	f.backend.onOpen = func(Handle) { queuedAtOpen = f.queue.Len() }

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "Morning Show"}))
	assert.Equal(t, 0, queuedAtOpen)
	assert.Equal(t, 2, f.cleared)

	require.True(t, f.sink.HandleOpenComplete(f.sink.Handle()))
	f.rec.OnSinkReady()
	f.rec.OnFragmentArrived(Fragment("Z"))

	assert.Equal(t, []string{"Z"}, f.backend.written())
}

// Scenario 5: forced stop with no session still reaches the server every time.
func TestSessionForcedStopWithoutSession(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.ForcedStop())
	require.NoError(t, f.ctrl.ForcedStop())

	assert.Equal(t, int32(2), f.upstream.calls.Load())
	assert.False(t, f.ctrl.Session().Active)
	assert.Equal(t, SinkAbsent, f.sink.State())
	assert.Empty(t, f.backend.closedHandles())
}

func TestSessionForcedStopWhileActive(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "Live"}))
	require.NoError(t, f.ctrl.ForcedStop())

	assert.False(t, f.ctrl.Session().Active)
	assert.Equal(t, SinkClosed, f.sink.State())
	assert.Equal(t, int32(1), f.upstream.calls.Load())
}

func TestSessionForcedStopUpstreamError(t *testing.T) {
	f := newSessionFixture()
	f.upstream.err = errors.New("not connected")

	err := f.ctrl.ForcedStop()
	require.Error(t, err)
	assert.ErrorIs(t, err, f.upstream.err)
}

func TestSessionStartWithUnavailableSink(t *testing.T) {
	f := newSessionFixture()
	f.backend.openErr = errors.New("no audio device")

	err := f.ctrl.Started(Broadcast{Title: "Live"})
	assert.ErrorIs(t, err, ErrSinkUnavailable)

	// The broadcast is still live even though it cannot be heard
	assert.True(t, f.ctrl.Session().Active)
	assert.Equal(t, SinkClosed, f.sink.State())
}

func TestSessionRestartAfterStop(t *testing.T) {
	f := newSessionFixture()

	require.NoError(t, f.ctrl.Started(Broadcast{Title: "One"}))
	first := f.sink.Handle()
	require.NoError(t, f.ctrl.Stopped())
	require.NoError(t, f.ctrl.Started(Broadcast{Title: "Two"}))

	assert.NotEqual(t, first, f.sink.Handle())
	assert.Equal(t, SinkOpening, f.sink.State())
	assert.Equal(t, "Two", f.ctrl.Session().Broadcast.Title)
}
