// ABOUTME: FLAC stream decoder
// ABOUTME: Parses FLAC frames from the fragment stream into 16-bit PCM in the output format
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"github.com/mewkiz/flac"
)

// flacStream decodes a FLAC byte stream. The stream header is parsed by the
// first Read, and its rate and channel count are converted to target's.
type flacStream struct {
	r      io.Reader
	target audio.Format

	stream *flac.Stream
	source audio.Format
	conv   *converter
	buf    []byte
}

func newFLACStream(r io.Reader, target audio.Format) *flacStream {
	return &flacStream{r: r, target: target}
}

func (s *flacStream) Read(p []byte) (int, error) {
	if s.stream == nil {
		stream, err := flac.New(s.r)
		if err != nil {
			return 0, fmt.Errorf("failed to decode FLAC header: %w", err)
		}
		s.stream = stream

		info := stream.Info
		s.source = audio.Format{
			Codec:      audio.CodecFLAC,
			SampleRate: int(info.SampleRate),
			Channels:   int(info.NChannels),
			BitDepth:   int(info.BitsPerSample),
		}
		s.conv = newConverter(s.source.SampleRate, s.source.Channels, s.target.SampleRate, s.target.Channels)
	}

	for len(s.buf) == 0 {
		frame, err := s.stream.ParseNext()
		if err != nil {
			return 0, err
		}

		channels := len(frame.Subframes)
		samples := make([]int32, 0, int(frame.BlockSize)*channels)
		bitDepth := int(s.stream.Info.BitsPerSample)
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, to24Bit(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
		s.buf = audio.AppendInt16LE(s.buf[:0], s.conv.convert(samples))
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// sourceFormat is the format the stream declares, known after the first Read
func (s *flacStream) sourceFormat() (audio.Format, bool) {
	return s.source, s.stream != nil
}

func (s *flacStream) Close() error {
	s.stream = nil
	s.buf = nil
	return nil
}

// to24Bit scales a sample of the given bit depth to 24-bit range
func to24Bit(sample int32, bitDepth int) int32 {
	shift := bitDepth - 24
	switch {
	case shift > 0:
		return sample >> shift
	case shift < 0:
		return sample << -shift
	default:
		return sample
	}
}
