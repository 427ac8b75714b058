// ABOUTME: Shared fakes for backend tests
// ABOUTME: Recording notifier and an in-memory audio output
package sinks

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Resonate-Protocol/onair-go/pkg/audio/output"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
)

type recordedSignal struct {
	kind   string
	handle relay.Handle
	err    error
}

type recordingNotifier struct {
	ch chan recordedSignal
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan recordedSignal, 16)}
}

func (n *recordingNotifier) OpenComplete(h relay.Handle) {
	n.ch <- recordedSignal{kind: "open", handle: h}
}

func (n *recordingNotifier) WriteComplete(h relay.Handle) {
	n.ch <- recordedSignal{kind: "write", handle: h}
}

func (n *recordingNotifier) SinkFailed(h relay.Handle, err error) {
	n.ch <- recordedSignal{kind: "failed", handle: h, err: err}
}

func (n *recordingNotifier) next(t *testing.T) recordedSignal {
	t.Helper()
	select {
	case s := <-n.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no signal from backend")
		return recordedSignal{}
	}
}

func (n *recordingNotifier) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case s := <-n.ch:
		t.Fatalf("unexpected signal %q for handle %d", s.kind, s.handle)
	case <-time.After(wait):
	}
}

// fakeOutput hands out players that copy PCM into memory
type fakeOutput struct {
	openErr error

	// hold, when set, keeps players from reading until it is closed
	hold chan struct{}

	mu      sync.Mutex
	opened  int
	players []*fakePlayer
}

func (o *fakeOutput) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return o.openErr
	}
	o.opened++
	return nil
}

func (o *fakeOutput) NewPlayer(r io.Reader) (output.Player, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p := &fakePlayer{r: r, hold: o.hold, done: make(chan struct{})}
	o.players = append(o.players, p)
	return p, nil
}

func (o *fakeOutput) Close() error { return nil }

func (o *fakeOutput) player(i int) *fakePlayer {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i >= len(o.players) {
		return nil
	}
	return o.players[i]
}

type fakePlayer struct {
	r    io.Reader
	hold chan struct{}
	done chan struct{}

	mu     sync.Mutex
	pcm    bytes.Buffer
	volume float64
	closed bool
	err    error
}

func (p *fakePlayer) Play() {
	go func() {
		defer close(p.done)
		if p.hold != nil {
			<-p.hold
		}
		buf := make([]byte, 512)
		for {
			n, err := p.r.Read(buf)
			p.mu.Lock()
			p.pcm.Write(buf[:n])
			if err != nil && err != io.EOF {
				p.err = err
			}
			p.mu.Unlock()
			if err != nil {
				return
			}
		}
	}()
}

func (p *fakePlayer) SetVolume(volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = volume
}

func (p *fakePlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePlayer) played() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.pcm.Bytes()...)
}

func (p *fakePlayer) gain() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}
