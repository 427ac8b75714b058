// ABOUTME: MP3 stream decoder
// ABOUTME: Wraps go-mp3 over the fragment stream and converts to the output format
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

const mp3ChunkSize = 4608

// mp3Stream decodes MP3 to 16-bit PCM at the output's rate and channel
// count. go-mp3 reads the first frame in NewDecoder, so the decoder is
// created by the first Read.
type mp3Stream struct {
	r      io.Reader
	target audio.Format

	decoder *mp3.Decoder
	source  audio.Format
	conv    *converter

	// unpack splits go-mp3's interleaved bytes into samples when converting
	unpack *PCMDecoder
	raw    []byte
	buf    []byte
	err    error
}

func newMP3Stream(r io.Reader, target audio.Format) *mp3Stream {
	return &mp3Stream{r: r, target: target}
}

func (s *mp3Stream) Read(p []byte) (int, error) {
	if s.decoder == nil {
		decoder, err := mp3.NewDecoder(s.r)
		if err != nil {
			return 0, fmt.Errorf("failed to create mp3 decoder: %w", err)
		}
		s.decoder = decoder

		// go-mp3 always produces stereo
		s.source = audio.Format{Codec: audio.CodecMP3, SampleRate: decoder.SampleRate(), Channels: 2}
		s.conv = newConverter(s.source.SampleRate, s.source.Channels, s.target.SampleRate, s.target.Channels)
		s.unpack = &PCMDecoder{bitDepth: 16}
		s.raw = make([]byte, mp3ChunkSize)
	}

	if s.conv.passthrough() {
		return s.decoder.Read(p)
	}

	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		n, err := s.decoder.Read(s.raw)
		s.err = err
		if n == 0 {
			continue
		}

		samples, err := s.unpack.Decode(s.raw[:n])
		if err != nil {
			return 0, err
		}
		s.buf = audio.AppendInt16LE(s.buf[:0], s.conv.convert(samples))
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

// sourceFormat is the format the stream declares, known after the first Read
func (s *mp3Stream) sourceFormat() (audio.Format, bool) {
	return s.source, s.decoder != nil
}

func (s *mp3Stream) Close() error {
	s.decoder = nil
	s.buf = nil
	return nil
}
