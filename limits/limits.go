// Package limits provides centralized chunk and frame size limits for chunksend.
// This ensures the sender, the receiver and the configuration layer agree on
// what a valid chunk size is.
package limits

import (
	"errors"
	"fmt"
)

const (
	// KiB is one kibibyte.
	KiB = 1024
	// MiB is one mebibyte.
	MiB = 1024 * KiB

	// DefaultChunkSize is the chunk size used when a configuration does not name one.
	DefaultChunkSize = 1 * MiB

	// MinChunkSize is the smallest chunk size that makes progress.
	MinChunkSize = 1

	// MaxChunkSize bounds the buffer a receiver allocates for one chunk.
	// A size-declared peer announcing more than this is rejected before any
	// allocation happens.
	MaxChunkSize = 1024 * MiB

	// MaxFramePayload is the largest length a frame decoder accepts by default (2^32).
	MaxFramePayload = 1 << 32

	// HeaderSize is the width of every length or size field on the wire.
	HeaderSize = 8
)

var (
	// ErrChunkSizeZero indicates a chunk size of zero was provided
	ErrChunkSizeZero = errors.New("chunk size is zero")

	// ErrChunkSizeTooLarge indicates a chunk size exceeds MaxChunkSize
	ErrChunkSizeTooLarge = errors.New("chunk size too large")

	// ErrFrameTooLarge indicates a frame length exceeds the accepted maximum
	ErrFrameTooLarge = errors.New("frame too large")
)

// ValidateChunkSize checks that size lies in [MinChunkSize, MaxChunkSize].
// Returns an error with context including the actual and maximum sizes.
func ValidateChunkSize(size uint64) error {
	if size < MinChunkSize {
		return ErrChunkSizeZero
	}
	if size > MaxChunkSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrChunkSizeTooLarge, size, uint64(MaxChunkSize))
	}
	return nil
}

// ValidateFrameLength checks a declared frame length against maxLength.
// A zero-length frame is always valid.
func ValidateFrameLength(length, maxLength uint64) error {
	if length > maxLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrFrameTooLarge, length, maxLength)
	}
	return nil
}

// ChunkCount returns the number of data chunks needed to carry total bytes
// in chunks of chunkSize, i.e. ceil(total / chunkSize). It returns 0 when
// chunkSize is zero.
func ChunkCount(total, chunkSize uint64) uint64 {
	if chunkSize == 0 || total == 0 {
		return 0
	}
	return (total-1)/chunkSize + 1
}

// NextChunkLen returns the length of the chunk that follows done bytes of a
// total-byte payload, clamped to the remaining byte count. It returns 0 once
// done reaches total.
func NextChunkLen(total, done, chunkSize uint64) uint64 {
	if done >= total {
		return 0
	}
	remaining := total - done
	if remaining < chunkSize {
		return remaining
	}
	return chunkSize
}
