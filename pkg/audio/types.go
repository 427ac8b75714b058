// ABOUTME: Audio type definitions
// ABOUTME: Defines the live stream format and sample conversion helpers
package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Supported codecs of the live stream
const (
	CodecPCM  = "pcm"
	CodecMP3  = "mp3"
	CodecFLAC = "flac"
	CodecOpus = "opus"
)

// Format describes the live audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int // pcm only: 16 or 24
}

// Validate checks that the format can be decoded and played
func (f Format) Validate() error {
	switch f.Codec {
	case CodecPCM:
		if f.BitDepth != 16 && f.BitDepth != 24 {
			return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", f.BitDepth)
		}
	case CodecMP3, CodecFLAC:
	case CodecOpus:
		switch f.SampleRate {
		case 8000, 12000, 16000, 24000, 48000:
		default:
			return fmt.Errorf("unsupported opus sample rate: %d", f.SampleRate)
		}
	default:
		return fmt.Errorf("unsupported codec: %q", f.Codec)
	}

	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", f.Channels)
	}

	return nil
}

// Extension is the file extension used when recording the raw stream
func (f Format) Extension() string {
	if f.Codec == CodecPCM {
		return "raw"
	}
	return f.Codec
}

func (f Format) String() string {
	if f.Codec == CodecPCM {
		return fmt.Sprintf("%s %dHz %dch %dbit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
	}
	return fmt.Sprintf("%s %dHz %dch", f.Codec, f.SampleRate, f.Channels)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	// Take lower 24 bits, pack little-endian
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}

// AppendInt16LE appends samples as signed 16-bit little-endian PCM
func AppendInt16LE(dst []byte, samples []int32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(SampleToInt16(s)))
	}
	return dst
}
