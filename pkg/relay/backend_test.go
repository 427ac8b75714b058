// ABOUTME: Recording fake backend for relay tests
// ABOUTME: Captures opens, appends and closes; completions are driven by the test
package relay

import (
	"errors"
	"sync"
)

type fakeBackend struct {
	mu sync.Mutex

	openErr    error
	appendErrs []error // consumed one per Append call, nil entries accept
	onOpen     func(h Handle)

	opened   []Handle
	closed   []Handle
	appended []appendCall
	notifier Notifier
}

type appendCall struct {
	handle Handle
	data   string
}

func (b *fakeBackend) Open(h Handle, n Notifier) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.onOpen != nil {
		b.onOpen(h)
	}
	if b.openErr != nil {
		return b.openErr
	}
	b.opened = append(b.opened, h)
	b.notifier = n
	return nil
}

func (b *fakeBackend) Append(h Handle, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.appendErrs) > 0 {
		err := b.appendErrs[0]
		b.appendErrs = b.appendErrs[1:]
		if err != nil {
			return err
		}
	}
	b.appended = append(b.appended, appendCall{handle: h, data: string(data)})
	return nil
}

func (b *fakeBackend) Close(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = append(b.closed, h)
	return nil
}

// written returns appended payloads in order
func (b *fakeBackend) written() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]string, 0, len(b.appended))
	for _, a := range b.appended {
		out = append(out, a.data)
	}
	return out
}

func (b *fakeBackend) closedHandles() []Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Handle(nil), b.closed...)
}

func (b *fakeBackend) rejectNext(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendErrs = append(b.appendErrs, errs...)
}

var errBufferFull = errors.New("quota exceeded")

// nopNotifier satisfies Notifier for tests that drive the sink directly
type nopNotifier struct{}

func (nopNotifier) OpenComplete(Handle)      {}
func (nopNotifier) WriteComplete(Handle)     {}
func (nopNotifier) SinkFailed(Handle, error) {}
