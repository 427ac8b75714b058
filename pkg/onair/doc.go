// ABOUTME: High-level on-air listener API
// ABOUTME: Provides the Listener that most library users need
// Package onair provides the high-level API for listening to an on-air
// relay server.
//
// This is the main entry point for most library users. A Listener keeps a
// connection to the server, feeds the live stream into a relay engine, and
// optionally keeps an archive browser up to date.
//
// For lower-level control, see the relay, protocol, sinks and archive packages.
//
// Example:
//
//	playback, err := sinks.NewPlayback(sinks.PlaybackConfig{
//	    Format: audio.Format{Codec: audio.CodecMP3, SampleRate: 44100, Channels: 2},
//	    Output: output.NewOto(nil),
//	})
//	listener, err := onair.New(onair.Config{
//	    ServerAddr: "relay.local:5000",
//	    Name:       "Kitchen",
//	    Backend:    playback,
//	})
//	err = listener.Run(ctx)
package onair
