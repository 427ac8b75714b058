// ABOUTME: On-air relay wire protocol package
// ABOUTME: Defines protocol messages and WebSocket client
// Package protocol implements the on-air relay wire protocol.
//
// Text frames carry JSON {"type", "payload"} envelopes for the handshake and
// broadcast lifecycle; binary frames carry raw audio fragments. The client
// delivers both through one ordered channel.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:5000", Name: "Kitchen"})
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	for ev := range client.Events() {
//	    // ...
//	}
package protocol
