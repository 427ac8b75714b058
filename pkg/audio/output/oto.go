// ABOUTME: Oto-based audio output implementation
// ABOUTME: Shares one oto context across players for the lifetime of the process
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	logger *slog.Logger

	mu         sync.Mutex
	otoCtx     *oto.Context
	sampleRate int
	channels   int
}

// NewOto creates a new Oto output
func NewOto(logger *slog.Logger) *Oto {
	if logger == nil {
		logger = slog.Default()
	}
	return &Oto{logger: logger}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		return o.otoCtx.Resume()
	}

	// oto allows one context per process, so a format change keeps the old one
	if o.otoCtx != nil {
		o.logger.Warn("Audio format changed but oto cannot reinitialize, keeping existing context",
			"sample_rate", o.sampleRate, "channels", o.channels,
			"requested_sample_rate", sampleRate, "requested_channels", channels)
		return o.otoCtx.Resume()
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	o.logger.Info("Audio output initialized", "sample_rate", sampleRate, "channels", channels)

	return nil
}

// NewPlayer creates a player reading from r
func (o *Oto) NewPlayer(r io.Reader) (Player, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return nil, errors.New("output not initialized")
	}

	return o.otoCtx.NewPlayer(r), nil
}

// Close suspends the device; the context itself lives until process exit
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.otoCtx == nil {
		return nil
	}
	return o.otoCtx.Suspend()
}
