// ABOUTME: Tests for relay protocol message types
// ABOUTME: Verifies wire field names of the handshake and lifecycle messages
package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHelloWireFormat(t *testing.T) {
	msg := Message{
		Type: TypeClientHello,
		Payload: ClientHello{
			ClientID: "test-id",
			Name:     "Kitchen",
			Version:  1,
			Roles:    []string{"listener"},
			DeviceInfo: &DeviceInfo{
				ProductName:     "On Air Listener",
				Manufacturer:    "Test Mfg",
				SoftwareVersion: "0.1.0",
			},
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"type": "client/hello",
		"payload": {
			"client_id": "test-id",
			"name": "Kitchen",
			"version": 1,
			"roles": ["listener"],
			"device_info": {
				"product_name": "On Air Listener",
				"manufacturer": "Test Mfg",
				"software_version": "0.1.0"
			}
		}
	}`, string(data))
}

func TestServerHelloLive(t *testing.T) {
	var hello ServerHello
	err := json.Unmarshal([]byte(`{
		"server_id": "srv-1",
		"name": "Studio",
		"version": 1,
		"live": {"title": "Morning Show", "date": "2024-05-01", "start_time": "08:00:00"}
	}`), &hello)
	require.NoError(t, err)

	require.NotNil(t, hello.Live)
	assert.Equal(t, "Morning Show", hello.Live.Title)
	assert.Equal(t, "2024-05-01", hello.Live.Date)
	assert.Equal(t, "08:00:00", hello.Live.StartTime)

	hello = ServerHello{}
	require.NoError(t, json.Unmarshal([]byte(`{"server_id": "srv-1"}`), &hello))
	assert.Nil(t, hello.Live)
}

func TestForceStopWireFormat(t *testing.T) {
	data, err := json.Marshal(Message{Type: TypeForceStop, Payload: ForceStop{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "broadcast/force_stop", "payload": {}}`, string(data))
}
