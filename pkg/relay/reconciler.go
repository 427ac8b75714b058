// ABOUTME: Control loop moving queued fragments into the sink
// ABOUTME: One write in flight, requeue on rejection, no synchronous retry
package relay

import (
	"errors"
	"log/slog"
)

// ReconcilerHooks observe reconciler outcomes. Nil hooks are skipped.
type ReconcilerHooks struct {
	OnWritten  func(size int)
	OnRejected func(err error)
	OnDropped  func(size int, err error)
}

// Reconciler drains a Queue into a Sink in enqueue order
type Reconciler struct {
	queue      *Queue
	sink       *Sink
	maxRejects int
	hooks      ReconcilerHooks
	logger     *slog.Logger

	// consecutive rejections of the fragment at the head
	rejects int
}

// NewReconciler creates a reconciler. maxRejects <= 0 retries forever.
func NewReconciler(queue *Queue, sink *Sink, maxRejects int, hooks ReconcilerHooks, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		queue:      queue,
		sink:       sink,
		maxRejects: maxRejects,
		hooks:      hooks,
		logger:     logger,
	}
}

// OnFragmentArrived queues a fragment and attempts a flush.
// Fragments are kept even while the sink is absent or closed.
func (r *Reconciler) OnFragmentArrived(f Fragment) {
	r.queue.Enqueue(f)
	r.TryFlush()
}

// OnSinkReady is the re-entry point after an open or write completes
func (r *Reconciler) OnSinkReady() {
	r.TryFlush()
}

// TryFlush writes the head fragment if the sink is ready. At most one write
// is issued per call; the next one waits for the completion signal.
func (r *Reconciler) TryFlush() {
	if r.sink.State() != SinkReady {
		return
	}

	f, ok := r.queue.Dequeue()
	if !ok {
		return
	}

	err := r.sink.Write(f)
	if err == nil {
		r.rejects = 0
		if r.hooks.OnWritten != nil {
			r.hooks.OnWritten(len(f))
		}
		return
	}

	if !errors.Is(err, ErrWriteRejected) {
		r.queue.PushFront(f)
		return
	}

	r.rejects++
	if r.hooks.OnRejected != nil {
		r.hooks.OnRejected(err)
	}

	if r.maxRejects > 0 && r.rejects >= r.maxRejects {
		r.logger.Warn("Dropping fragment after repeated write rejections",
			"attempts", r.rejects, "size", len(f), "error", err)
		r.rejects = 0
		if r.hooks.OnDropped != nil {
			r.hooks.OnDropped(len(f), err)
		}
		return
	}

	r.logger.Warn("Sink rejected fragment, requeued",
		"attempt", r.rejects, "state", r.sink.State(), "error", err)
	r.queue.PushFront(f)
}

// Reset forgets the rejection count, used when the queue is cleared
func (r *Reconciler) Reset() {
	r.rejects = 0
}
