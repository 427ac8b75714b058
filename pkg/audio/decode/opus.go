// ABOUTME: Opus audio decoder and packet framing
// ABOUTME: Decodes Opus packets and frames them with a length prefix on byte streams
package decode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/onair-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// MaxPacketSize is the largest packet WritePacket can frame
const MaxPacketSize = 1<<16 - 1

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm16   []int16
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != audio.CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		// 120ms at 48kHz is the longest Opus frame
		pcm16: make([]int16, 5760*format.Channels),
	}, nil
}

// Decode converts one Opus packet to int32 samples
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	n, err := d.decoder.Decode(data, d.pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	total := n * d.format.Channels
	pcm32 := make([]int32, total)
	for i := 0; i < total; i++ {
		pcm32[i] = audio.SampleFromInt16(d.pcm16[i])
	}
	return pcm32, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

// WritePacket writes one packet prefixed by its big-endian uint16 length
func WritePacket(w io.Writer, packet []byte) error {
	if len(packet) > MaxPacketSize {
		return fmt.Errorf("packet too large: %d bytes", len(packet))
	}

	framed := make([]byte, 2+len(packet))
	binary.BigEndian.PutUint16(framed, uint16(len(packet)))
	copy(framed[2:], packet)

	_, err := w.Write(framed)
	return err
}

// ReadPacket reads one packet written by WritePacket. It returns io.EOF only
// at a packet boundary.
func ReadPacket(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	packet := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(r, packet); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return packet, nil
}
