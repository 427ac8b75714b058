// ABOUTME: Tests for PCM decoder
// ABOUTME: Tests 16-bit and 24-bit PCM decoding across fragment boundaries
package decode

import (
	"testing"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcmFormat(bitDepth int) audio.Format {
	return audio.Format{Codec: audio.CodecPCM, SampleRate: 48000, Channels: 2, BitDepth: bitDepth}
}

func TestNewPCM(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(16))
	require.NoError(t, err)
	assert.NotNil(t, decoder)

	_, err = NewPCM(pcmFormat(8))
	assert.EqualError(t, err, "unsupported bit depth: 8 (supported: 16, 24)")

	_, err = NewPCM(audio.Format{Codec: audio.CodecOpus, BitDepth: 16})
	assert.EqualError(t, err, "invalid codec for PCM decoder: opus")
}

func TestPCMDecode16Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(16))
	require.NoError(t, err)

	// 0x0100 = 256 and 0x0302 = 770, scaled to 24-bit range
	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x03})
	require.NoError(t, err)
	assert.Equal(t, []int32{256 << 8, 770 << 8}, output)
}

func TestPCMDecode24Bit(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(24))
	require.NoError(t, err)

	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0xFF, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, []int32{0x020100, -1}, output)
}

func TestPCMDecodeSplitSample(t *testing.T) {
	decoder, err := NewPCM(pcmFormat(24))
	require.NoError(t, err)

	// First fragment ends two bytes into the second sample
	output, err := decoder.Decode([]byte{0x00, 0x01, 0x02, 0x56, 0x34})
	require.NoError(t, err)
	assert.Equal(t, []int32{0x020100}, output)

	output, err = decoder.Decode([]byte{0x12})
	require.NoError(t, err)
	assert.Equal(t, []int32{0x123456}, output)

	output, err = decoder.Decode([]byte{0x01})
	require.NoError(t, err)
	assert.Empty(t, output)

	require.NoError(t, decoder.Close())
}
