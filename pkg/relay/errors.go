// ABOUTME: Error taxonomy for the relay core
// ABOUTME: Sentinel errors classified with errors.Is
package relay

import "errors"

var (
	// ErrSinkUnavailable is returned when the sink could not be opened.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrWriteRejected wraps any error returned by a backend append.
	ErrWriteRejected = errors.New("write rejected")

	// ErrNotReady is returned by Sink.Write outside the ready state.
	ErrNotReady = errors.New("sink not ready")

	// ErrSinkDetached marks a backend error after which the handle is dead.
	// Backends wrap it so the sink transitions to closed instead of ready.
	ErrSinkDetached = errors.New("sink detached")

	// ErrSinkBusy is returned by backends asked to append while a previous
	// append is still outstanding.
	ErrSinkBusy = errors.New("sink busy")

	// ErrStaleSignal marks a completion signal for a superseded handle.
	ErrStaleSignal = errors.New("stale sink signal")

	// ErrDuplicateSessionStart marks a start signal while a session is active.
	ErrDuplicateSessionStart = errors.New("broadcast already active")

	// ErrStopWithNoSession marks a stop signal while no session is active.
	ErrStopWithNoSession = errors.New("no active broadcast")
)
