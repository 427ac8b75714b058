// ABOUTME: Live fragment relay core package
// ABOUTME: Reconciles a pushed fragment stream with a single-writer playback sink
// Package relay feeds an unbounded, externally paced stream of audio fragments
// into a sink that accepts exactly one pending write at a time.
//
// The package is built from four parts that share one goroutine:
//   - Queue: FIFO of fragments waiting to be written
//   - Sink: state machine around a Backend and its current Handle
//   - Reconciler: moves fragments from the Queue into the Sink
//   - SessionController: reacts to broadcast started/stopped/forced-stop signals
//
// Engine owns all four and serializes every input (network fragments,
// lifecycle signals, backend completions) through a single event loop, so
// none of the parts need locks.
//
// Example:
//
//	engine, err := relay.New(relay.Config{
//	    Backend:   sinks.NewFile(sinks.FileConfig{Dir: "recordings"}),
//	    Upstream:  client,
//	    Refresher: browser,
//	})
//	go engine.Run(ctx)
//	engine.BroadcastStarted(relay.Broadcast{Title: "Morning Show"})
//	engine.PushFragment(data)
package relay
