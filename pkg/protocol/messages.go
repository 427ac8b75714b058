// ABOUTME: On-air relay protocol message type definitions
// ABOUTME: JSON envelopes for lifecycle events and the client handshake
package protocol

import "encoding/json"

// Message types carried in text frames
const (
	TypeClientHello      = "client/hello"
	TypeClientGoodbye    = "client/goodbye"
	TypeForceStop        = "broadcast/force_stop"
	TypeServerHello      = "server/hello"
	TypeBroadcastStarted = "broadcast/started"
	TypeBroadcastStopped = "broadcast/stopped"
)

// Message is the top-level wrapper for all outbound text messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// envelope is the inbound form of Message with the payload left raw
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	Roles      []string    `json:"roles"`
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ServerHello is the server's response to client/hello.
// Live is set when a broadcast is already on air at connect time.
type ServerHello struct {
	ServerID string            `json:"server_id"`
	Name     string            `json:"name"`
	Version  int               `json:"version"`
	Live     *BroadcastStarted `json:"live,omitempty"`
}

// BroadcastStarted announces a live broadcast
type BroadcastStarted struct {
	Title     string `json:"title"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM:SS
}

// BroadcastStopped announces the end of the live broadcast
type BroadcastStopped struct {
	EndTime string `json:"end_time,omitempty"`
}

// ForceStop asks the server to end the live broadcast
type ForceStop struct{}

// ClientGoodbye is sent before graceful disconnect
type ClientGoodbye struct {
	Reason string `json:"reason"` // "shutdown", "restart", "user_request"
}
