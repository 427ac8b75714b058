// ABOUTME: High-level Listener API for on-air relay servers
// ABOUTME: Connects, reconnects, pumps server events into the relay engine and exposes controls
package onair

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/onair-go/internal/version"
	"github.com/Resonate-Protocol/onair-go/pkg/archive"
	"github.com/Resonate-Protocol/onair-go/pkg/protocol"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// ErrVolumeUnsupported is returned when the backend has no volume control
var ErrVolumeUnsupported = errors.New("backend has no volume control")

// VolumeControl is implemented by backends that play audio
type VolumeControl interface {
	SetVolume(volume int)
	SetMuted(muted bool)
	Volume() int
	Muted() bool
}

// Config holds listener configuration
type Config struct {
	// ServerAddr is the relay server address (host:port)
	ServerAddr string

	// Name is the display name for this listener
	Name string

	// ClientID defaults to a random UUID
	ClientID string

	// DeviceInfo defaults to this product
	DeviceInfo protocol.DeviceInfo

	// Backend receives the live stream (required)
	Backend relay.Backend

	// Archive enables the archive browser (optional)
	Archive archive.Searcher

	// ReconnectInterval is the minimum time between connection attempts (default: 2s)
	ReconnectInterval time.Duration

	// RefreshDelay is the wait between a stop and the archive refresh (default: 1s)
	RefreshDelay time.Duration

	// MaxWriteRejects caps retries of a refused fragment (default: 5, negative: unlimited)
	MaxWriteRejects int

	Clock  clockwork.Clock
	Logger *slog.Logger

	// OnStatus is called whenever the listener status changes
	OnStatus func(Status)

	// OnArchive is called whenever the archive view changes
	OnArchive func(archive.View)
}

// Status describes the connection and the live broadcast
type Status struct {
	relay.Status

	Connected bool
	Server    string
}

// Listener plays (or records) the live broadcast of one relay server
type Listener struct {
	config Config
	logger *slog.Logger

	engine  *relay.Engine
	browser *archive.Browser
	limiter *rate.Limiter

	mu        sync.RWMutex
	client    *protocol.Client
	connected bool
	server    string

	// sessionMu orders lifecycle signals into the engine. live and current
	// mirror the session those signals leave the engine in.
	sessionMu sync.Mutex
	live      bool
	current   protocol.BroadcastStarted

	started atomic.Bool
}

// New creates a listener with the given configuration
func New(config Config) (*Listener, error) {
	if config.ServerAddr == "" {
		return nil, errors.New("server address is required")
	}
	if config.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Name == "" {
		config.Name = version.Product
	}
	if config.DeviceInfo.ProductName == "" {
		config.DeviceInfo.ProductName = version.Product
	}
	if config.DeviceInfo.Manufacturer == "" {
		config.DeviceInfo.Manufacturer = version.Manufacturer
	}
	if config.DeviceInfo.SoftwareVersion == "" {
		config.DeviceInfo.SoftwareVersion = version.Version
	}
	if config.ReconnectInterval <= 0 {
		config.ReconnectInterval = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	l := &Listener{
		config:  config,
		logger:  config.Logger,
		limiter: rate.NewLimiter(rate.Every(config.ReconnectInterval), 1),
	}

	engineConfig := relay.Config{
		Backend:         config.Backend,
		Upstream:        l,
		Clock:           config.Clock,
		RefreshDelay:    config.RefreshDelay,
		MaxWriteRejects: config.MaxWriteRejects,
		Logger:          config.Logger,
		OnStatus:        func(relay.Status) { l.notifyStatus() },
	}

	if config.Archive != nil {
		l.browser = archive.NewBrowser(config.Archive, archive.BrowserConfig{
			OnUpdate: config.OnArchive,
			Logger:   config.Logger,
		})
		engineConfig.Refresher = l.browser
	}

	engine, err := relay.New(engineConfig)
	if err != nil {
		return nil, err
	}
	l.engine = engine

	return l, nil
}

// Run connects and relays until ctx is cancelled. It may be called once.
// The connection is re-established whenever it drops; the local session
// survives and is reconciled against the server's hello.
func (l *Listener) Run(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("listener already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.engine.Run(ctx)
	}()

	if l.browser != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.browser.Refresh()
		}()
	}

	l.connectLoop(ctx)
	wg.Wait()

	l.logger.Info("Listener stopped")
	return nil
}

// connectLoop dials, pumps one connection, and dials again
func (l *Listener) connectLoop(ctx context.Context) {
	for {
		if err := l.limiter.Wait(ctx); err != nil {
			return
		}

		client := protocol.NewClient(protocol.Config{
			ServerAddr: l.config.ServerAddr,
			ClientID:   l.config.ClientID,
			Name:       l.config.Name,
			Version:    1,
			DeviceInfo: l.config.DeviceInfo,
			Logger:     l.logger,
		})

		if err := client.Connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn("Connection failed", "server", l.config.ServerAddr, "error", err)
			continue
		}

		hello := client.Hello()
		l.setClient(client, hello.Name)
		l.reconcile(hello)

		l.pump(ctx, client)

		l.setClient(nil, "")
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("Disconnected from server, reconnecting", "server", l.config.ServerAddr)
	}
}

// reconcile applies the live state reported at connect time: a broadcast
// already on air is joined, and a session whose stop was missed is ended
func (l *Listener) reconcile(hello protocol.ServerHello) {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	if l.live && (hello.Live == nil || *hello.Live != l.current) {
		l.logger.Info("Broadcast ended while disconnected", "title", l.current.Title)
		l.stopLocked()
	}

	if hello.Live != nil && !l.live {
		l.logger.Info("Joining broadcast in progress", "title", hello.Live.Title)
		l.startLocked(*hello.Live)
	}
}

// pump moves server events into the engine in arrival order
func (l *Listener) pump(ctx context.Context, client *protocol.Client) {
	for {
		select {
		case ev, ok := <-client.Events():
			if !ok {
				return
			}
			l.forward(ev)

		case <-ctx.Done():
			if err := client.SendGoodbye("shutdown"); err != nil {
				l.logger.Debug("Failed to send goodbye", "error", err)
			}
			client.Close()
			return
		}
	}
}

func (l *Listener) forward(ev protocol.Event) {
	switch ev.Type {
	case protocol.EventAudio:
		l.engine.PushFragment(ev.Audio)

	case protocol.EventBroadcastStarted:
		l.sessionMu.Lock()
		l.startLocked(ev.Started)
		l.sessionMu.Unlock()

	case protocol.EventBroadcastStopped:
		l.sessionMu.Lock()
		l.stopLocked()
		l.sessionMu.Unlock()
	}
}

func (l *Listener) startLocked(b protocol.BroadcastStarted) {
	l.live = true
	l.current = b
	l.engine.BroadcastStarted(relay.Broadcast{
		Title:     b.Title,
		Date:      b.Date,
		StartTime: b.StartTime,
	})
}

func (l *Listener) stopLocked() {
	l.live = false
	l.current = protocol.BroadcastStarted{}
	l.engine.BroadcastStopped()
}

func (l *Listener) setClient(client *protocol.Client, server string) {
	l.mu.Lock()
	l.client = client
	l.connected = client != nil
	l.server = server
	l.mu.Unlock()

	l.notifyStatus()
}

// RequestForceStop implements relay.Upstream
func (l *Listener) RequestForceStop() error {
	l.mu.RLock()
	client := l.client
	l.mu.RUnlock()

	if client == nil {
		return protocol.ErrNotConnected
	}
	return client.RequestForceStop()
}

// ForceStop ends playback locally and asks the server to end the broadcast.
// A server that still reports the broadcast live on the next connect is
// joined again.
func (l *Listener) ForceStop() {
	l.sessionMu.Lock()
	defer l.sessionMu.Unlock()

	l.live = false
	l.current = protocol.BroadcastStarted{}
	l.engine.ForceStop()
}

// Archive returns the archive browser, or nil when no archive is configured
func (l *Listener) Archive() *archive.Browser {
	return l.browser
}

// SetVolume sets the volume (0-100)
func (l *Listener) SetVolume(volume int) error {
	vc, ok := l.config.Backend.(VolumeControl)
	if !ok {
		return ErrVolumeUnsupported
	}
	vc.SetVolume(volume)
	l.notifyStatus()
	return nil
}

// SetMuted sets the mute state
func (l *Listener) SetMuted(muted bool) error {
	vc, ok := l.config.Backend.(VolumeControl)
	if !ok {
		return ErrVolumeUnsupported
	}
	vc.SetMuted(muted)
	l.notifyStatus()
	return nil
}

// Volume returns the current volume and mute state
func (l *Listener) Volume() (volume int, muted bool, err error) {
	vc, ok := l.config.Backend.(VolumeControl)
	if !ok {
		return 0, false, ErrVolumeUnsupported
	}
	return vc.Volume(), vc.Muted(), nil
}

// Stats returns relay statistics
func (l *Listener) Stats() relay.Stats {
	return l.engine.Stats()
}

// Connected reports whether a server connection is up
func (l *Listener) Connected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// Status returns the current listener status
func (l *Listener) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{
		Status:    l.engine.Status(),
		Connected: l.connected,
		Server:    l.server,
	}
}

func (l *Listener) notifyStatus() {
	if l.config.OnStatus != nil {
		l.config.OnStatus(l.Status())
	}
}
