// ABOUTME: Broadcast session controller reacting to lifecycle signals
// ABOUTME: Drives sink open/close and queue clearing on start/stop/forced stop
package relay

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultRefreshDelay is the grace period before the archive view is refreshed
// after a broadcast stops, leaving the server time to persist the recording.
const DefaultRefreshDelay = time.Second

// Broadcast describes a live broadcast as announced by the server
type Broadcast struct {
	Title     string
	Date      string
	StartTime string
}

// Session is the client's belief about whether a broadcast is live
type Session struct {
	Active    bool
	Broadcast Broadcast
	StartedAt time.Time
}

// Upstream carries requests back to the relay server
type Upstream interface {
	RequestForceStop() error
}

// Refresher reloads the archive view
type Refresher interface {
	Refresh()
}

// SessionController owns the broadcast session and drives the sink and
// queue on its transitions. It is not safe for concurrent use.
type SessionController struct {
	session Session

	queue      *Queue
	sink       *Sink
	reconciler *Reconciler
	upstream   Upstream
	refresher  Refresher

	clock        clockwork.Clock
	refreshDelay time.Duration
	logger       *slog.Logger

	// OnCleared reports fragments discarded by a session start
	OnCleared func(n int)
}

// NewSessionController creates an inactive session controller
func NewSessionController(queue *Queue, sink *Sink, reconciler *Reconciler, upstream Upstream, refresher Refresher, clock clockwork.Clock, refreshDelay time.Duration, logger *slog.Logger) *SessionController {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SessionController{
		queue:        queue,
		sink:         sink,
		reconciler:   reconciler,
		upstream:     upstream,
		refresher:    refresher,
		clock:        clock,
		refreshDelay: refreshDelay,
		logger:       logger,
	}
}

// Session returns the current session
func (c *SessionController) Session() Session {
	return c.session
}

// Started begins a session: stale fragments are cleared before the sink is
// opened. A start while already active is ignored and returns
// ErrDuplicateSessionStart. A sink that cannot be opened is reported as
// ErrSinkUnavailable but the session still becomes active.
func (c *SessionController) Started(b Broadcast) error {
	if c.session.Active {
		c.logger.Info("Ignoring duplicate broadcast start",
			"title", b.Title, "active_title", c.session.Broadcast.Title)
		return ErrDuplicateSessionStart
	}

	c.session = Session{
		Active:    true,
		Broadcast: b,
		StartedAt: c.clock.Now(),
	}

	if n := c.queue.Clear(); n > 0 {
		c.logger.Info("Discarded fragments from previous broadcast", "count", n)
		if c.OnCleared != nil {
			c.OnCleared(n)
		}
	}
	c.reconciler.Reset()

	h, err := c.sink.Open()
	if err != nil {
		c.logger.Error("Failed to open sink", "title", b.Title, "error", err)
		return err
	}

	c.logger.Info("Broadcast started", "title", b.Title, "handle", h)
	return nil
}

// Stopped ends the active session, closes the sink and schedules an archive
// refresh. Without an active session it returns ErrStopWithNoSession and
// changes nothing.
func (c *SessionController) Stopped() error {
	if !c.session.Active {
		c.logger.Info("Ignoring broadcast stop with no active session")
		return ErrStopWithNoSession
	}

	title := c.session.Broadcast.Title
	c.session = Session{}
	c.sink.Close()

	if c.refresher != nil {
		c.clock.AfterFunc(c.refreshDelay, c.refresher.Refresh)
	}

	c.logger.Info("Broadcast stopped", "title", title, "queued", c.queue.Len())
	return nil
}

// ForcedStop applies a local stop, if there is anything to stop, and always
// forwards a forced-stop request upstream since the server may still consider
// the broadcast live.
func (c *SessionController) ForcedStop() error {
	_ = c.Stopped()

	if c.upstream == nil {
		return nil
	}

	if err := c.upstream.RequestForceStop(); err != nil {
		return fmt.Errorf("failed to request forced stop: %w", err)
	}

	return nil
}
