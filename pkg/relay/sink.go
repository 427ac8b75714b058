// ABOUTME: Sink lifecycle state machine around a single-writer backend
// ABOUTME: Owns handle identity so completions from old handles are ignored
package relay

import (
	"errors"
	"fmt"
	"log/slog"
)

// SinkState is the lifecycle state of the playback sink
type SinkState int

const (
	SinkAbsent SinkState = iota
	SinkOpening
	SinkReady
	SinkBusy
	SinkClosed
)

func (s SinkState) String() string {
	switch s {
	case SinkAbsent:
		return "absent"
	case SinkOpening:
		return "opening"
	case SinkReady:
		return "ready"
	case SinkBusy:
		return "busy"
	case SinkClosed:
		return "closed"
	default:
		return fmt.Sprintf("SinkState(%d)", int(s))
	}
}

// Handle identifies one opened backend buffer. Zero means no handle.
type Handle uint64

// Notifier receives asynchronous completion signals from a Backend.
// Implementations must tolerate being called from any goroutine.
type Notifier interface {
	// OpenComplete reports that the buffer for h accepts writes
	OpenComplete(h Handle)

	// WriteComplete reports that the outstanding append on h finished
	WriteComplete(h Handle)

	// SinkFailed reports that h died (device lost, decoder error)
	SinkFailed(h Handle, err error)
}

// Backend is the concrete single-writer destination for fragments.
//
// Open and Append must not block: they start the work and report completion
// later through the Notifier, never from inside the call itself.
type Backend interface {
	// Open starts allocating a writable buffer identified by h
	Open(h Handle, n Notifier) error

	// Append starts writing data to h. A second Append before WriteComplete
	// must fail with ErrSinkBusy. Errors wrapping ErrSinkDetached mean h is dead.
	Append(h Handle, data []byte) error

	// Close releases h. Outstanding completions for h may still arrive.
	Close(h Handle) error
}

// Sink serializes writes to a Backend. It is not safe for concurrent use.
type Sink struct {
	backend  Backend
	notifier Notifier
	logger   *slog.Logger

	state    SinkState
	handle   Handle
	next     Handle
	attached bool // backend still holds resources for handle
}

// NewSink creates a sink in the absent state
func NewSink(backend Backend, notifier Notifier, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sink{
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		state:    SinkAbsent,
	}
}

// State returns the current lifecycle state
func (s *Sink) State() SinkState {
	return s.state
}

// Handle returns the current (or most recent) handle
func (s *Sink) Handle() Handle {
	return s.handle
}

// Open allocates a new backend buffer. While opening, ready or busy it is a
// no-op returning the existing handle.
func (s *Sink) Open() (Handle, error) {
	switch s.state {
	case SinkOpening, SinkReady, SinkBusy:
		return s.handle, nil
	}

	// A handle left attached by a failure path must go before a new one exists
	s.release()

	s.next++
	h := s.next
	s.handle = h
	s.state = SinkOpening
	s.attached = true

	if err := s.backend.Open(h, s.notifier); err != nil {
		s.attached = false
		s.state = SinkClosed
		return 0, fmt.Errorf("%w: %w", ErrSinkUnavailable, err)
	}

	s.logger.Debug("Sink opening", "handle", h)
	return h, nil
}

// Write hands one fragment to the backend. It fails with ErrNotReady unless the
// sink is ready. A backend refusal is returned wrapped in ErrWriteRejected and
// leaves the sink ready, or closed when the backend reports it detached.
func (s *Sink) Write(f Fragment) error {
	if s.state != SinkReady {
		return fmt.Errorf("%w: state %s", ErrNotReady, s.state)
	}

	s.state = SinkBusy

	if err := s.backend.Append(s.handle, f); err != nil {
		if errors.Is(err, ErrSinkDetached) {
			s.release()
			s.state = SinkClosed
		} else {
			s.state = SinkReady
		}
		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}

	return nil
}

// HandleOpenComplete applies an open-complete signal. It returns false, without
// touching state, when the signal belongs to another handle or arrives late.
func (s *Sink) HandleOpenComplete(h Handle) bool {
	if h != s.handle || s.state != SinkOpening {
		return false
	}

	s.state = SinkReady
	return true
}

// HandleWriteComplete applies a write-complete signal, BUSY -> READY
func (s *Sink) HandleWriteComplete(h Handle) bool {
	if h != s.handle || s.state != SinkBusy {
		return false
	}

	s.state = SinkReady
	return true
}

// HandleFailure moves the sink to closed when the current handle died
func (s *Sink) HandleFailure(h Handle, err error) bool {
	if h != s.handle || s.state == SinkClosed || s.state == SinkAbsent {
		return false
	}

	s.logger.Warn("Sink failed", "handle", h, "state", s.state, "error", err)
	s.release()
	s.state = SinkClosed
	return true
}

// Close releases the current handle from any state. Completions still in
// flight for it are ignored afterwards.
func (s *Sink) Close() {
	s.release()
	s.state = SinkClosed
}

// release closes the backend buffer for the current handle if still attached
func (s *Sink) release() {
	if !s.attached {
		return
	}
	s.attached = false

	if err := s.backend.Close(s.handle); err != nil {
		s.logger.Warn("Failed to close sink", "handle", s.handle, "error", err)
	}
}
