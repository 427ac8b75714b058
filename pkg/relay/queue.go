// ABOUTME: FIFO queue of audio fragments awaiting a sink write
// ABOUTME: Unbounded, never rejects, supports requeue at the head
package relay

// Fragment is one opaque unit of audio payload. Its order is its arrival order.
type Fragment []byte

// Queue is an unbounded FIFO of fragments. It is not safe for concurrent use;
// the Engine event loop is its only caller.
type Queue struct {
	items []Fragment
	head  int
	bytes int
}

// NewQueue creates an empty fragment queue
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a fragment to the tail
func (q *Queue) Enqueue(f Fragment) {
	q.items = append(q.items, f)
	q.bytes += len(f)
}

// Dequeue removes and returns the head fragment.
// ok is false when the queue is empty.
func (q *Queue) Dequeue() (f Fragment, ok bool) {
	if q.head >= len(q.items) {
		return nil, false
	}

	f = q.items[q.head]
	q.items[q.head] = nil
	q.head++
	q.bytes -= len(f)

	// Reclaim the consumed prefix once it dominates the backing array
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}

	return f, true
}

// PushFront puts a fragment back at the head, ahead of everything queued.
// Used to retry a fragment the sink refused.
func (q *Queue) PushFront(f Fragment) {
	q.bytes += len(f)

	if q.head > 0 {
		q.head--
		q.items[q.head] = f
		return
	}

	q.items = append(q.items, nil)
	copy(q.items[1:], q.items)
	q.items[0] = f
}

// Clear discards every pending fragment and returns how many were dropped
func (q *Queue) Clear() int {
	n := q.Len()
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	q.bytes = 0
	return n
}

// Len returns the number of pending fragments
func (q *Queue) Len() int {
	return len(q.items) - q.head
}

// Bytes returns the total payload size of pending fragments
func (q *Queue) Bytes() int {
	return q.bytes
}
