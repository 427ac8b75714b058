// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format and sample conversion functions
// Package audio provides the stream format of the live broadcast and sample
// conversion helpers shared by the decoders and outputs.
//
// Decoded samples are int32 values in 24-bit range; outputs convert them to
// 16-bit little-endian PCM with AppendInt16LE.
//
// Example:
//
//	format := audio.Format{
//	    Codec:      audio.CodecPCM,
//	    SampleRate: 48000,
//	    Channels:   2,
//	    BitDepth:   16,
//	}
//	if err := format.Validate(); err != nil {
//	    return err
//	}
package audio
