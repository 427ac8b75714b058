// ABOUTME: Decoder interface and stream constructor
// ABOUTME: Turns a contiguous fragment stream into 16-bit PCM for playback
package decode

import (
	"fmt"
	"io"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
)

// Decoder decodes self-contained packets to PCM int32 samples
type Decoder interface {
	// Decode converts encoded audio data to PCM samples
	Decode(data []byte) ([]int32, error)

	// Close releases decoder resources
	Close() error
}

const pcmChunkSize = 4096

// NewStream returns a reader of signed 16-bit little-endian PCM decoded from
// r at format's sample rate and channel count. MP3 and FLAC streams declare
// their own rate and channels, which are converted when they differ.
// Nothing is read from r until the first Read, so construction never waits
// for audio to arrive. Closing the stream does not close r.
func NewStream(format audio.Format, r io.Reader) (io.ReadCloser, error) {
	switch format.Codec {
	case audio.CodecPCM:
		dec, err := NewPCM(format)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, pcmChunkSize)
		return newPacketStream(dec, func() ([]byte, error) {
			n, err := r.Read(buf)
			return buf[:n], err
		}), nil

	case audio.CodecOpus:
		dec, err := NewOpus(format)
		if err != nil {
			return nil, err
		}
		return newPacketStream(dec, func() ([]byte, error) {
			return ReadPacket(r)
		}), nil

	case audio.CodecMP3:
		return newMP3Stream(r, format), nil

	case audio.CodecFLAC:
		return newFLACStream(r, format), nil

	default:
		return nil, fmt.Errorf("unsupported codec: %q", format.Codec)
	}
}

// packetStream adapts a packet Decoder to io.Reader
type packetStream struct {
	dec  Decoder
	next func() ([]byte, error)
	buf  []byte
	err  error
}

func newPacketStream(dec Decoder, next func() ([]byte, error)) *packetStream {
	return &packetStream{dec: dec, next: next}
}

func (s *packetStream) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		if s.err != nil {
			return 0, s.err
		}

		packet, err := s.next()
		s.err = err
		if len(packet) == 0 {
			continue
		}

		samples, decErr := s.dec.Decode(packet)
		if decErr != nil {
			return 0, decErr
		}
		s.buf = audio.AppendInt16LE(s.buf[:0], samples)
	}

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (s *packetStream) Close() error {
	return s.dec.Close()
}
