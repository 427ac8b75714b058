// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Provides packet decoders and streaming readers for PCM, Opus, FLAC, MP3
// Package decode turns the live fragment stream into 16-bit PCM.
//
// PCM and Opus are decoded packet by packet through the Decoder interface;
// MP3 and FLAC are container streams whose frames may span fragments, so they
// are decoded from an io.Reader. NewStream hides the difference.
//
// Opus packets travel over byte streams framed by WritePacket.
//
// Example:
//
//	pr, pw := io.Pipe()
//	pcm, err := decode.NewStream(format, pr)
//	// write fragments to pw, play pcm
package decode
