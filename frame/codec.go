package frame

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/chunksend/limits"
)

// Encoder writes frames to an underlying stream and counts them.
type Encoder struct {
	w      io.Writer
	hdr    [HeaderSize]byte
	frames uint64
	bytes  uint64
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteFrame writes one frame carrying payload.
func (e *Encoder) WriteFrame(payload []byte) error {
	if err := writeFrame(e.w, e.hdr[:], payload); err != nil {
		return err
	}
	e.frames++
	e.bytes += uint64(len(payload))
	return nil
}

// WriteSentinel writes the zero-length end-of-stream frame.
func (e *Encoder) WriteSentinel() error {
	return e.WriteFrame(nil)
}

// Frames returns the number of frames written, sentinel included.
func (e *Encoder) Frames() uint64 { return e.frames }

// PayloadBytes returns the number of payload bytes written.
func (e *Encoder) PayloadBytes() uint64 { return e.bytes }

// Decoder reads frames from an underlying stream. The payload buffer is
// reused between calls to Next.
type Decoder struct {
	r          io.Reader
	hdr        [HeaderSize]byte
	buf        []byte
	maxPayload uint64
	frames     uint64
}

// NewDecoder returns a Decoder reading from r that accepts payloads up to
// limits.MaxFramePayload bytes.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, maxPayload: limits.MaxFramePayload}
}

// SetMaxPayload changes the largest payload length the decoder accepts.
func (d *Decoder) SetMaxPayload(n uint64) {
	d.maxPayload = n
}

// Frames returns the number of complete frames read so far.
func (d *Decoder) Frames() uint64 { return d.frames }

// Next reads one frame and returns its payload. The returned slice is only
// valid until the next call. It returns io.EOF if the stream ended cleanly
// before a header, io.ErrUnexpectedEOF (wrapped) if it ended inside a frame,
// and ErrPayloadTooLarge if the declared length exceeds the maximum.
func (d *Decoder) Next() ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.hdr[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("frame: read header: %w", err)
	}
	length := binary.BigEndian.Uint64(d.hdr[:])

	if err := limits.ValidateFrameLength(length, d.maxPayload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadTooLarge, err)
	}

	if uint64(cap(d.buf)) < length {
		d.buf = make([]byte, length)
	}
	payload := d.buf[:length]
	if length > 0 {
		if _, err := io.ReadFull(d.r, payload); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("frame: read payload: %w", err)
		}
	}
	d.frames++
	return payload, nil
}
