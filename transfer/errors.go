package transfer

import (
	"errors"
	"fmt"

	"github.com/opd-ai/chunksend/transport"
)

// Kind classifies a transfer failure.
type Kind uint8

const (
	// KindUnknown is reported for errors that did not come from this package
	// or the transport layer.
	KindUnknown Kind = iota
	// KindConnection covers dial, listen and accept failures.
	KindConnection
	// KindFileSystem covers source and destination file failures.
	KindFileSystem
	// KindStream covers short reads, short writes and streams closed mid-frame.
	KindStream
	// KindProtocol covers peers announcing values the protocol cannot honor.
	KindProtocol
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindFileSystem:
		return "filesystem"
	case KindStream:
		return "stream"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

var (
	// ErrZeroChunkSize indicates a size-declared peer announced a zero chunk
	// size for a non-empty payload.
	ErrZeroChunkSize = errors.New("declared chunk size is zero")

	// ErrChunkTooLarge indicates a chunk or frame larger than limits.MaxChunkSize.
	ErrChunkTooLarge = errors.New("chunk exceeds maximum size")

	// ErrNotRegularFile indicates the source path is a directory or device.
	ErrNotRegularFile = errors.New("source is not a regular file")

	// ErrMissingSentinel indicates the stream ended before the end-of-stream frame.
	ErrMissingSentinel = errors.New("stream ended before sentinel frame")
)

// Error is a classified transfer failure.
type Error struct {
	Kind Kind   // failure class
	Op   string // operation that failed, e.g. "open", "write frame"
	Path string // file path if relevant
	Err  error  // underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("transfer %s %s (%s): %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("transfer %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf classifies err. Transport failures are reported as KindConnection.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if transport.IsConnectionError(err) {
		return KindConnection
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
