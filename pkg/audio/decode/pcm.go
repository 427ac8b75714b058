// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit and 24-bit PCM audio split at arbitrary byte offsets
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
)

// PCMDecoder decodes little-endian PCM. A sample split across two fragments
// is held back until the rest arrives.
type PCMDecoder struct {
	bitDepth int
	partial  []byte
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != audio.CodecPCM {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
	}, nil
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	if len(d.partial) > 0 {
		data = append(d.partial, data...)
		d.partial = nil
	}

	width := d.bitDepth / 8
	numSamples := len(data) / width
	if rest := data[numSamples*width:]; len(rest) > 0 {
		d.partial = append([]byte(nil), rest...)
	}

	samples := make([]int32, numSamples)
	for i := range samples {
		if width == 3 {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.SampleFrom24Bit(b)
		} else {
			samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	d.partial = nil
	return nil
}
