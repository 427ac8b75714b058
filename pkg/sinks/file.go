// ABOUTME: File backend recording the live stream to disk
// ABOUTME: One file per handle named after the broadcast start time
package sinks

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"github.com/Resonate-Protocol/onair-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
	"github.com/jonboulle/clockwork"
)

const recordingTimeLayout = "20060102_150405"

// FileConfig holds file backend configuration
type FileConfig struct {
	Dir    string
	Format audio.Format

	// Clock names the recordings (default: real clock)
	Clock clockwork.Clock

	Logger *slog.Logger
}

// File records each opened handle to its own file. It implements relay.Backend.
type File struct {
	config FileConfig
	logger *slog.Logger

	mu      sync.Mutex
	streams map[relay.Handle]*fileStream
}

type fileStream struct {
	handle   relay.Handle
	notifier relay.Notifier
	file     *os.File

	pending bool // guarded by File.mu
	writes  chan []byte
	stop    chan struct{}
}

// NewFile creates a file backend
func NewFile(config FileConfig) (*File, error) {
	if config.Dir == "" {
		return nil, errors.New("file sink: directory is required")
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &File{
		config:  config,
		logger:  config.Logger,
		streams: make(map[relay.Handle]*fileStream),
	}, nil
}

// Open creates the recording file and signals readiness from the writer goroutine
func (f *File) Open(h relay.Handle, n relay.Notifier) error {
	if err := os.MkdirAll(f.config.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recording directory: %w", err)
	}

	file, err := f.create()
	if err != nil {
		return err
	}

	s := &fileStream{
		handle:   h,
		notifier: n,
		file:     file,
		writes:   make(chan []byte, 1),
		stop:     make(chan struct{}),
	}

	f.mu.Lock()
	f.streams[h] = s
	f.mu.Unlock()

	f.logger.Info("Recording live broadcast", "handle", h, "path", file.Name())

	go f.run(s)
	return nil
}

// create opens a new file named siaran_<timestamp>.<ext>, adding a counter
// when a recording with the same second already exists
func (f *File) create() (*os.File, error) {
	base := "siaran_" + f.config.Clock.Now().Format(recordingTimeLayout)
	ext := f.config.Format.Extension()

	for i := 1; ; i++ {
		name := base + "." + ext
		if i > 1 {
			name = fmt.Sprintf("%s_%d.%s", base, i, ext)
		}

		file, err := os.OpenFile(filepath.Join(f.config.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create recording: %w", err)
		}
		return file, nil
	}
}

// Append queues data for the stream's writer
func (f *File) Append(h relay.Handle, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.streams[h]
	if !ok {
		return fmt.Errorf("file handle %d: %w", h, relay.ErrSinkDetached)
	}
	if s.pending {
		return relay.ErrSinkBusy
	}

	s.pending = true
	s.writes <- append([]byte(nil), data...)
	return nil
}

// Close stops the writer; the file is closed by the writer goroutine
func (f *File) Close(h relay.Handle) error {
	f.mu.Lock()
	s, ok := f.streams[h]
	delete(f.streams, h)
	f.mu.Unlock()

	if ok {
		close(s.stop)
	}
	return nil
}

func (f *File) run(s *fileStream) {
	defer func() {
		if err := s.file.Close(); err != nil {
			f.logger.Warn("Failed to close recording", "path", s.file.Name(), "error", err)
		}
	}()

	if !signal(s.stop, func() { s.notifier.OpenComplete(s.handle) }) {
		return
	}

	for {
		select {
		case <-s.stop:
			return
		case data := <-s.writes:
			var err error
			if f.config.Format.Codec == audio.CodecOpus {
				err = decode.WritePacket(s.file, data)
			} else {
				_, err = s.file.Write(data)
			}
			if err != nil {
				f.logger.Warn("Recording write failed", "handle", s.handle, "error", err)
				signal(s.stop, func() { s.notifier.SinkFailed(s.handle, err) })
				return
			}

			f.mu.Lock()
			s.pending = false
			f.mu.Unlock()

			if !signal(s.stop, func() { s.notifier.WriteComplete(s.handle) }) {
				return
			}
		}
	}
}

// signal runs fn unless stop is closed
func signal(stop <-chan struct{}, fn func()) bool {
	select {
	case <-stop:
		return false
	default:
	}
	fn()
	return true
}
