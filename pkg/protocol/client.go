// ABOUTME: WebSocket client for the on-air relay protocol
// ABOUTME: Handles connection, handshake, and ordered event delivery
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultPath is the websocket endpoint on the relay server
	DefaultPath = "/onair"

	defaultHandshakeTimeout = 5 * time.Second
	eventBufferSize         = 256
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string
	ClientID   string
	Name       string
	Version    int
	DeviceInfo DeviceInfo

	// HandshakeTimeout bounds the wait for server/hello (default: 5s)
	HandshakeTimeout time.Duration

	Logger *slog.Logger
}

// EventType identifies an inbound event
type EventType int

const (
	EventAudio EventType = iota
	EventBroadcastStarted
	EventBroadcastStopped
)

func (t EventType) String() string {
	switch t {
	case EventAudio:
		return "audio"
	case EventBroadcastStarted:
		return "broadcast_started"
	case EventBroadcastStopped:
		return "broadcast_stopped"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is one inbound item in server order
type Event struct {
	Type    EventType
	Audio   []byte           // EventAudio
	Started BroadcastStarted // EventBroadcastStarted
	Stopped BroadcastStopped // EventBroadcastStopped
}

// Client is one websocket connection to a relay server
type Client struct {
	config Config
	logger *slog.Logger

	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	hello ServerHello

	// Fragments and lifecycle events share one channel so their order is kept
	events chan Event
	done   chan struct{}

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		logger: config.Logger,
		events: make(chan Event, eventBufferSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	c.logger.Info("Connecting", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		close(c.events)
		close(c.done)
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		close(c.events)
		close(c.done)
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    c.config.Version,
		Roles:      []string{"listener"},
		DeviceInfo: &c.config.DeviceInfo,
	}

	if err := c.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	if msg.Type != TypeServerHello {
		return fmt.Errorf("expected %s, got %s", TypeServerHello, msg.Type)
	}

	var serverHello ServerHello
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &serverHello); err != nil {
			return fmt.Errorf("failed to parse server/hello payload: %w", err)
		}
	}

	c.mu.Lock()
	c.hello = serverHello
	c.mu.Unlock()

	c.logger.Info("Handshake complete", "server", serverHello.Name, "live", serverHello.Live != nil)
	return nil
}

// Hello returns the server/hello received during the handshake
func (c *Client) Hello() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// Events returns the ordered inbound event stream. It is closed when the
// connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Done is closed once the reader has exited
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.done)
	defer close(c.events)
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Warn("Read error", "error", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.deliver(Event{Type: EventAudio, Audio: data})
		case websocket.TextMessage:
			c.handleJSONMessage(data)
		default:
			c.logger.Debug("Unknown WebSocket message type", "type", messageType)
		}
	}
}

// handleJSONMessage routes lifecycle messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Warn("Failed to parse JSON message", "error", err)
		return
	}

	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case TypeBroadcastStarted:
		var started BroadcastStarted
		if err := json.Unmarshal(msg.Payload, &started); err != nil {
			c.logger.Warn("Failed to parse broadcast/started", "error", err)
			return
		}
		c.deliver(Event{Type: EventBroadcastStarted, Started: started})

	case TypeBroadcastStopped:
		var stopped BroadcastStopped
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &stopped); err != nil {
				c.logger.Warn("Failed to parse broadcast/stopped", "error", err)
				return
			}
		}
		c.deliver(Event{Type: EventBroadcastStopped, Stopped: stopped})

	default:
		c.logger.Debug("Unknown message type", "type", msg.Type)
	}
}

func (c *Client) deliver(ev Event) {
	select {
	case c.events <- ev:
	case <-c.ctx.Done():
	}
}

// RequestForceStop asks the server to end the live broadcast
func (c *Client) RequestForceStop() error {
	return c.sendJSON(Message{Type: TypeForceStop, Payload: ForceStop{}})
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	return c.sendJSON(Message{Type: TypeClientGoodbye, Payload: ClientGoodbye{Reason: reason}})
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.logger.Debug("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
