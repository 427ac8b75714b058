// ABOUTME: Playback backend feeding fragments through a decoder to the speaker
// ABOUTME: One pipe, decoder and player per handle; completions signalled asynchronously
package sinks

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"github.com/Resonate-Protocol/onair-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/onair-go/pkg/audio/output"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
)

// PlaybackConfig holds playback backend configuration
type PlaybackConfig struct {
	Format audio.Format
	Output output.Output

	// Volume is the initial volume 0-100 (default: 100)
	Volume int

	Logger *slog.Logger
}

// Playback plays the live stream. It implements relay.Backend.
type Playback struct {
	config PlaybackConfig
	logger *slog.Logger

	mu      sync.Mutex
	streams map[relay.Handle]*playbackStream
	volume  int
	muted   bool
}

type playbackStream struct {
	handle   relay.Handle
	notifier relay.Notifier

	pr  *io.PipeReader
	pw  *io.PipeWriter
	pcm io.ReadCloser

	// guarded by Playback.mu
	player  output.Player
	pending bool

	writes chan []byte
	stop   chan struct{}
}

// NewPlayback creates a playback backend
func NewPlayback(config PlaybackConfig) (*Playback, error) {
	if config.Output == nil {
		return nil, errors.New("playback: output is required")
	}
	if err := config.Format.Validate(); err != nil {
		return nil, fmt.Errorf("playback: %w", err)
	}
	if config.Volume == 0 {
		config.Volume = 100
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Playback{
		config:  config,
		logger:  config.Logger,
		streams: make(map[relay.Handle]*playbackStream),
		volume:  output.ClampVolume(config.Volume),
	}, nil
}

// Open prepares the decoder pipeline for h and starts the device in the background
func (p *Playback) Open(h relay.Handle, n relay.Notifier) error {
	pr, pw := io.Pipe()

	pcm, err := decode.NewStream(p.config.Format, pr)
	if err != nil {
		pr.Close()
		return err
	}

	s := &playbackStream{
		handle:   h,
		notifier: n,
		pr:       pr,
		pw:       pw,
		pcm:      pcm,
		writes:   make(chan []byte, 1),
		stop:     make(chan struct{}),
	}

	p.mu.Lock()
	p.streams[h] = s
	p.mu.Unlock()

	go p.run(s)
	return nil
}

// Append queues data for the stream's writer
func (p *Playback) Append(h relay.Handle, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.streams[h]
	if !ok {
		return fmt.Errorf("playback handle %d: %w", h, relay.ErrSinkDetached)
	}
	if s.pending {
		return relay.ErrSinkBusy
	}

	s.pending = true
	s.writes <- append([]byte(nil), data...)
	return nil
}

// Close tears down the stream for h without waiting for it
func (p *Playback) Close(h relay.Handle) error {
	p.mu.Lock()
	s, ok := p.streams[h]
	delete(p.streams, h)
	p.mu.Unlock()

	if !ok {
		return nil
	}

	close(s.stop)
	// Unblocks a writer stuck on a full pipe
	s.pw.CloseWithError(relay.ErrSinkDetached)
	return nil
}

// SetVolume sets the volume (0-100) of current and future streams
func (p *Playback) SetVolume(volume int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = output.ClampVolume(volume)
	p.applyGainLocked()
	p.logger.Debug("Volume set", "volume", p.volume)
}

// SetMuted sets mute state
func (p *Playback) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.muted = muted
	p.applyGainLocked()
	p.logger.Debug("Mute set", "muted", muted)
}

// Volume returns current volume
func (p *Playback) Volume() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Muted returns mute state
func (p *Playback) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *Playback) applyGainLocked() {
	gain := output.Gain(p.volume, p.muted)
	for _, s := range p.streams {
		if s.player != nil {
			s.player.SetVolume(gain)
		}
	}
}

// run opens the device, signals open-complete and then serves writes
func (p *Playback) run(s *playbackStream) {
	defer p.cleanup(s)

	format := p.config.Format
	if err := p.config.Output.Open(format.SampleRate, format.Channels); err != nil {
		p.fail(s, fmt.Errorf("failed to open audio output: %w", err))
		return
	}

	// A decoder error must fail the pipe, or the writer would block forever
	player, err := p.config.Output.NewPlayer(&failingReader{r: s.pcm, onError: func(err error) {
		s.pr.CloseWithError(err)
	}})
	if err != nil {
		p.fail(s, fmt.Errorf("failed to create player: %w", err))
		return
	}

	p.mu.Lock()
	s.player = player
	player.SetVolume(output.Gain(p.volume, p.muted))
	p.mu.Unlock()

	player.Play()

	if !signal(s.stop, func() { s.notifier.OpenComplete(s.handle) }) {
		return
	}

	for {
		select {
		case <-s.stop:
			return
		case data := <-s.writes:
			if err := p.write(s, data); err != nil {
				p.fail(s, err)
				return
			}

			p.mu.Lock()
			s.pending = false
			p.mu.Unlock()

			if !signal(s.stop, func() { s.notifier.WriteComplete(s.handle) }) {
				return
			}
		}
	}
}

func (p *Playback) write(s *playbackStream, data []byte) error {
	if p.config.Format.Codec == audio.CodecOpus {
		return decode.WritePacket(s.pw, data)
	}
	_, err := s.pw.Write(data)
	return err
}

func (p *Playback) fail(s *playbackStream, err error) {
	select {
	case <-s.stop:
		return
	default:
	}

	p.logger.Warn("Playback stream failed", "handle", s.handle, "error", err)
	s.notifier.SinkFailed(s.handle, err)
}

func (p *Playback) cleanup(s *playbackStream) {
	s.pw.Close()

	p.mu.Lock()
	player := s.player
	p.mu.Unlock()

	if player != nil {
		if err := player.Close(); err != nil {
			p.logger.Debug("Failed to close player", "handle", s.handle, "error", err)
		}
	}
	s.pcm.Close()
	s.pr.Close()
}

// failingReader reports the first non-EOF error from r
type failingReader struct {
	r       io.Reader
	onError func(error)
	once    sync.Once
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err != nil && err != io.EOF {
		f.once.Do(func() { f.onError(err) })
	}
	return n, err
}
