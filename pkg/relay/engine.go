// ABOUTME: Engine owning queue, sink, reconciler and session controller
// ABOUTME: Serializes fragments, lifecycle signals and sink completions on one goroutine
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	// DefaultMaxWriteRejects is how often one fragment may be refused before it is dropped
	DefaultMaxWriteRejects = 5

	defaultEventBuffer = 256
)

// Config holds engine configuration
type Config struct {
	// Backend is the concrete sink destination (required)
	Backend Backend

	// Upstream receives forced-stop requests (optional)
	Upstream Upstream

	// Refresher reloads the archive view after a broadcast stops (optional)
	Refresher Refresher

	// Clock drives the deferred refresh (default: real clock)
	Clock clockwork.Clock

	// RefreshDelay is the grace period before refreshing (default: 1s)
	RefreshDelay time.Duration

	// MaxWriteRejects caps retries of a refused fragment (default: 5, negative: unlimited)
	MaxWriteRejects int

	// EventBuffer is the capacity of the inbound event channel (default: 256)
	EventBuffer int

	Logger *slog.Logger

	// OnStatus is called from the event loop whenever Status changes
	OnStatus func(Status)
}

// Status is the user-facing view of the engine
type Status struct {
	Live      bool
	Title     string
	SinkState SinkState

	// Message describes a user-visible failure, empty when healthy
	Message string
}

// Stats contains relay counters and gauges
type Stats struct {
	Received     int64
	Written      int64
	WrittenBytes int64
	Rejected     int64
	Dropped      int64
	Cleared      int64
	StaleSignals int64
	ForceStops   int64

	Queued      int
	QueuedBytes int
	SinkState   SinkState
	Live        bool
	Title       string
}

type eventKind int

const (
	evFragment eventKind = iota
	evStarted
	evStopped
	evForceStop
	evOpenComplete
	evWriteComplete
	evSinkFailed
)

type event struct {
	kind      eventKind
	fragment  Fragment
	broadcast Broadcast
	handle    Handle
	err       error
}

// Engine is the per-listener owner of the relay components
type Engine struct {
	config Config
	logger *slog.Logger

	queue      *Queue
	sink       *Sink
	reconciler *Reconciler
	sessions   *SessionController

	events  chan event
	signals chan event
	done    chan struct{}
	runOnce sync.Once

	// loop-owned
	counters Stats
	message  string
	last     Status

	mu       sync.RWMutex
	snapshot Stats
	status   Status
}

// New creates an engine. Call Run to start processing.
func New(config Config) (*Engine, error) {
	if config.Backend == nil {
		return nil, errors.New("relay: backend is required")
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.RefreshDelay == 0 {
		config.RefreshDelay = DefaultRefreshDelay
	}
	if config.MaxWriteRejects == 0 {
		config.MaxWriteRejects = DefaultMaxWriteRejects
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	e := &Engine{
		config:  config,
		logger:  config.Logger,
		events:  make(chan event, config.EventBuffer),
		signals: make(chan event, 16),
		done:    make(chan struct{}),
		last:    Status{SinkState: SinkAbsent},
	}

	e.queue = NewQueue()
	e.sink = NewSink(config.Backend, e, e.logger)
	e.reconciler = NewReconciler(e.queue, e.sink, config.MaxWriteRejects, ReconcilerHooks{
		OnWritten: func(size int) {
			e.counters.Written++
			e.counters.WrittenBytes += int64(size)
		},
		OnRejected: func(error) {
			e.counters.Rejected++
		},
		OnDropped: func(size int, err error) {
			e.counters.Dropped++
			e.message = fmt.Sprintf("Audio dropped after repeated playback errors: %v", err)
		},
	}, e.logger)
	e.sessions = NewSessionController(e.queue, e.sink, e.reconciler,
		config.Upstream, config.Refresher, config.Clock, config.RefreshDelay, e.logger)
	e.sessions.OnCleared = func(n int) {
		e.counters.Cleared += int64(n)
	}

	e.status = e.last
	e.snapshot = Stats{SinkState: SinkAbsent}

	return e, nil
}

// Run processes events until ctx is cancelled, then closes the sink.
// It must be called at most once.
func (e *Engine) Run(ctx context.Context) {
	ran := false
	e.runOnce.Do(func() { ran = true })
	if !ran {
		e.logger.Warn("Engine already running")
		return
	}

	// done closes before the sink so backend signals raised while it
	// shuts down are dropped instead of blocking on a full channel
	defer e.sink.Close()
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			e.handle(ev)
		case ev := <-e.signals:
			e.handle(ev)
		}
		e.publish()
	}
}

// PushFragment delivers one audio fragment in arrival order
func (e *Engine) PushFragment(data []byte) {
	e.post(e.events, event{kind: evFragment, fragment: Fragment(data)})
}

// BroadcastStarted delivers a broadcast-started signal
func (e *Engine) BroadcastStarted(b Broadcast) {
	e.post(e.events, event{kind: evStarted, broadcast: b})
}

// BroadcastStopped delivers a broadcast-stopped signal
func (e *Engine) BroadcastStopped() {
	e.post(e.events, event{kind: evStopped})
}

// ForceStop stops locally and asks the server to end the broadcast
func (e *Engine) ForceStop() {
	e.post(e.events, event{kind: evForceStop})
}

// OpenComplete implements Notifier
func (e *Engine) OpenComplete(h Handle) {
	e.post(e.signals, event{kind: evOpenComplete, handle: h})
}

// WriteComplete implements Notifier
func (e *Engine) WriteComplete(h Handle) {
	e.post(e.signals, event{kind: evWriteComplete, handle: h})
}

// SinkFailed implements Notifier
func (e *Engine) SinkFailed(h Handle, err error) {
	e.post(e.signals, event{kind: evSinkFailed, handle: h, err: err})
}

// Stats returns a snapshot taken after the last processed event
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// Status returns the last published status
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// post enqueues an event unless the loop has exited
func (e *Engine) post(ch chan event, ev event) {
	select {
	case ch <- ev:
	case <-e.done:
	}
}

// handle applies one event. Only the Run goroutine calls it.
func (e *Engine) handle(ev event) {
	switch ev.kind {
	case evFragment:
		e.counters.Received++
		e.reconciler.OnFragmentArrived(ev.fragment)

	case evStarted:
		err := e.sessions.Started(ev.broadcast)
		switch {
		case err == nil:
			e.message = ""
		case errors.Is(err, ErrSinkUnavailable):
			e.message = fmt.Sprintf("Live playback unavailable: %v", err)
		}

	case evStopped:
		_ = e.sessions.Stopped()

	case evForceStop:
		e.counters.ForceStops++
		if err := e.sessions.ForcedStop(); err != nil {
			e.logger.Error("Forced stop request failed", "error", err)
			e.message = fmt.Sprintf("Could not end the broadcast on the server: %v", err)
		}

	case evOpenComplete:
		if !e.sink.HandleOpenComplete(ev.handle) {
			e.stale("open", ev.handle)
			return
		}
		e.reconciler.OnSinkReady()

	case evWriteComplete:
		if !e.sink.HandleWriteComplete(ev.handle) {
			e.stale("write", ev.handle)
			return
		}
		e.reconciler.OnSinkReady()

	case evSinkFailed:
		opening := e.sink.State() == SinkOpening
		if !e.sink.HandleFailure(ev.handle, ev.err) {
			e.stale("failure", ev.handle)
			return
		}
		switch {
		case !e.sessions.Session().Active:
		case opening:
			// Device setup failed after the backend accepted the open
			e.message = fmt.Sprintf("Live playback unavailable: %v", fmt.Errorf("%w: %w", ErrSinkUnavailable, ev.err))
		default:
			e.message = fmt.Sprintf("Live playback stopped: %v", ev.err)
		}
	}
}

func (e *Engine) stale(signal string, h Handle) {
	e.counters.StaleSignals++
	e.logger.Debug("Ignoring stale sink signal",
		"signal", signal, "handle", h, "current", e.sink.Handle(), "state", e.sink.State(),
		"error", ErrStaleSignal)
}

// publish copies loop-owned state into the snapshot and fires OnStatus on change
func (e *Engine) publish() {
	session := e.sessions.Session()

	snap := e.counters
	snap.Queued = e.queue.Len()
	snap.QueuedBytes = e.queue.Bytes()
	snap.SinkState = e.sink.State()
	snap.Live = session.Active
	snap.Title = session.Broadcast.Title

	status := Status{
		Live:      session.Active,
		Title:     session.Broadcast.Title,
		SinkState: e.sink.State(),
		Message:   e.message,
	}

	e.mu.Lock()
	e.snapshot = snap
	e.status = status
	e.mu.Unlock()

	if status != e.last {
		e.last = status
		if e.config.OnStatus != nil {
			e.config.OnStatus(status)
		}
	}
}
