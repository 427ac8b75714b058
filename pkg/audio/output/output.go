// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and volume helpers
package output

import "io"

// Output represents an audio output device
type Output interface {
	// Open initializes the output device for signed 16-bit little-endian PCM
	Open(sampleRate, channels int) error

	// NewPlayer creates a player pulling PCM from r
	NewPlayer(r io.Reader) (Player, error)

	// Close releases output resources
	Close() error
}

// Player plays one PCM stream
type Player interface {
	Play()
	SetVolume(volume float64)

	// Err returns the error that stopped playback, if any
	Err() error

	Close() error
}

// ClampVolume limits volume to 0-100
func ClampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}

// Gain converts a 0-100 volume and mute state to a player gain
func Gain(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(ClampVolume(volume)) / 100.0
}
