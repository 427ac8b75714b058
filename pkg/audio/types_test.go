// ABOUTME: Tests for audio types
// ABOUTME: Tests format validation and sample conversion functions
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr string
	}{
		{"pcm16", Format{Codec: CodecPCM, SampleRate: 48000, Channels: 2, BitDepth: 16}, ""},
		{"pcm24 mono", Format{Codec: CodecPCM, SampleRate: 44100, Channels: 1, BitDepth: 24}, ""},
		{"mp3", Format{Codec: CodecMP3, SampleRate: 44100, Channels: 2}, ""},
		{"flac", Format{Codec: CodecFLAC, SampleRate: 48000, Channels: 2}, ""},
		{"opus", Format{Codec: CodecOpus, SampleRate: 48000, Channels: 2}, ""},
		{"pcm8", Format{Codec: CodecPCM, SampleRate: 48000, Channels: 2, BitDepth: 8}, "unsupported bit depth"},
		{"opus 44.1k", Format{Codec: CodecOpus, SampleRate: 44100, Channels: 2}, "unsupported opus sample rate"},
		{"webm", Format{Codec: "webm", SampleRate: 48000, Channels: 2}, "unsupported codec"},
		{"zero rate", Format{Codec: CodecMP3, Channels: 2}, "invalid sample rate"},
		{"surround", Format{Codec: CodecFLAC, SampleRate: 48000, Channels: 6}, "unsupported channel count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFormatExtension(t *testing.T) {
	assert.Equal(t, "raw", Format{Codec: CodecPCM}.Extension())
	assert.Equal(t, "mp3", Format{Codec: CodecMP3}.Extension())
	assert.Equal(t, "opus", Format{Codec: CodecOpus}.Extension())
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "pcm 48000Hz 2ch 16bit", Format{Codec: CodecPCM, SampleRate: 48000, Channels: 2, BitDepth: 16}.String())
	assert.Equal(t, "mp3 44100Hz 2ch", Format{Codec: CodecMP3, SampleRate: 44100, Channels: 2}.String())
}

func TestSampleConversions(t *testing.T) {
	assert.Equal(t, int32(100<<8), SampleFromInt16(100))
	assert.Equal(t, int32(-32768<<8), SampleFromInt16(-32768))
	assert.Equal(t, int16(3906), SampleToInt16(1000000))
	assert.Equal(t, int16(-3907), SampleToInt16(-1000000))

	assert.Equal(t, [3]byte{0x56, 0x34, 0x12}, SampleTo24Bit(0x123456))
	assert.Equal(t, [3]byte{0x00, 0xFF, 0xFF}, SampleTo24Bit(-256))
	assert.Equal(t, int32(Max24Bit), SampleFrom24Bit([3]byte{0xFF, 0xFF, 0x7F}))
	assert.Equal(t, int32(Min24Bit), SampleFrom24Bit([3]byte{0x00, 0x00, 0x80}))

	for _, s := range []int16{0, 1000, -1000, 32767, -32768} {
		assert.Equal(t, s, SampleToInt16(SampleFromInt16(s)))
	}
}

func TestAppendInt16LE(t *testing.T) {
	out := AppendInt16LE([]byte{0xAA}, []int32{SampleFromInt16(0x0102), SampleFromInt16(-1)})
	assert.Equal(t, []byte{0xAA, 0x02, 0x01, 0xFF, 0xFF}, out)
}
