// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and oto implementation
// Package output provides audio playback interfaces.
//
// Oto is the cross-platform implementation. oto permits one context per
// process, so an Oto is opened once and hands out a Player per stream.
//
// Example:
//
//	out := output.NewOto(logger)
//	err := out.Open(48000, 2)
//	player, err := out.NewPlayer(pcm)
//	player.SetVolume(output.Gain(80, false))
//	player.Play()
package output
