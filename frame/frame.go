// Package frame implements the chunksend wire primitives: raw 8-byte
// big-endian unsigned integers and length-prefixed frames.
//
// Frame layout:
//
//	[8 bytes] payload length (big-endian uint64)
//	[N bytes] payload
//
// A frame with length 0 carries no payload and is used as an end-of-stream
// sentinel by the sentinel-terminated transfer protocol.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/opd-ai/chunksend/limits"
)

// HeaderSize is the size of a frame length header in bytes.
const HeaderSize = limits.HeaderSize

// ErrPayloadTooLarge is returned when a frame's declared length exceeds the
// decoder's maximum payload size.
var ErrPayloadTooLarge = errors.New("frame: payload exceeds maximum size")

// ErrShortWrite is returned when the underlying writer accepts fewer bytes
// than requested without reporting an error.
var ErrShortWrite = errors.New("frame: short write")

// WriteUint64 writes v as 8 raw big-endian bytes.
func WriteUint64(w io.Writer, v uint64) error {
	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint64(hdr[:], v)
	return writeFull(w, hdr[:])
}

// ReadUint64 reads exactly 8 bytes and decodes them as a big-endian uint64.
// It returns io.EOF only if no byte was read, and io.ErrUnexpectedEOF if the
// stream ended inside the field.
func ReadUint64(r io.Reader) (uint64, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(hdr[:]), nil
}

// WriteFrame writes a single frame carrying payload to w.
// The header and payload are submitted together so that no other frame can
// be interleaved between them by the caller.
func WriteFrame(w io.Writer, payload []byte) error {
	var hdr [HeaderSize]byte
	return writeFrame(w, hdr[:], payload)
}

// WriteSentinel writes the zero-length end-of-stream frame.
func WriteSentinel(w io.Writer) error {
	return WriteFrame(w, nil)
}

// ReadFrame reads a single frame from r and returns its payload, accepting
// payloads up to limits.MaxFramePayload bytes. A zero-length frame yields an
// empty payload and a nil error.
func ReadFrame(r io.Reader) ([]byte, error) {
	return NewDecoder(r).Next()
}

func writeFrame(w io.Writer, hdr, payload []byte) error {
	binary.BigEndian.PutUint64(hdr, uint64(len(payload)))
	if len(payload) == 0 {
		if err := writeFull(w, hdr); err != nil {
			return fmt.Errorf("frame: write header: %w", err)
		}
		return nil
	}

	bufs := net.Buffers{hdr, payload}
	want := int64(len(hdr) + len(payload))
	n, err := bufs.WriteTo(w)
	if err != nil {
		if n < int64(len(hdr)) {
			return fmt.Errorf("frame: write header: %w", err)
		}
		return fmt.Errorf("frame: write payload: %w", err)
	}
	if n != want {
		return fmt.Errorf("frame: wrote %d of %d bytes: %w", n, want, ErrShortWrite)
	}
	return nil
}

// writeFull writes all of p, converting a silent short write into ErrShortWrite.
func writeFull(w io.Writer, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return ErrShortWrite
	}
	return nil
}

// WriteChunk writes p to w with no length prefix. Size-declared transfers use
// it for data chunks whose lengths both sides derive from the headers.
func WriteChunk(w io.Writer, p []byte) error {
	if err := writeFull(w, p); err != nil {
		return fmt.Errorf("frame: write chunk: %w", err)
	}
	return nil
}

// ReadChunk fills p from r. A stream that ends before p is full, including
// one that ends before the first byte, yields io.ErrUnexpectedEOF (wrapped).
func ReadChunk(r io.Reader, p []byte) error {
	if _, err := io.ReadFull(r, p); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("frame: read chunk: %w", err)
	}
	return nil
}
