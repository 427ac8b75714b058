// ABOUTME: Concrete relay backends package
// ABOUTME: Speaker playback and on-disk recording of the live stream
// Package sinks provides relay.Backend implementations.
//
// Playback decodes the fragment stream and plays it through an
// output.Output. File records the raw stream to
// <dir>/siaran_<YYYYmmdd_HHMMSS>.<ext>.
//
// Both accept one outstanding Append per handle, reject a second with
// relay.ErrSinkBusy, and report completions from their own goroutine.
package sinks
