package transfer

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Receiver stores files streamed by a peer. Total size and chunk size are
// learned from the stream, never chosen locally.
type Receiver struct {
	protocol Protocol

	mu               sync.Mutex
	progressCallback ProgressFunc
	timeProvider     TimeProvider
}

// NewReceiver creates a Receiver for the given protocol.
func NewReceiver(protocol Protocol) (*Receiver, error) {
	if !protocol.Valid() {
		return nil, fmt.Errorf("transfer: unknown protocol %d", uint8(protocol))
	}
	return &Receiver{
		protocol:     protocol,
		timeProvider: defaultTimeProvider,
	}, nil
}

// Protocol returns the receiver's wire protocol.
func (r *Receiver) Protocol() Protocol { return r.protocol }

// OnProgress sets a callback invoked after every chunk is written to disk.
// This method is safe for concurrent use.
func (r *Receiver) OnProgress(callback ProgressFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progressCallback = callback
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (r *Receiver) SetTimeProvider(tp TimeProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tp == nil {
		tp = defaultTimeProvider
	}
	r.timeProvider = tp
}

// ReceiveFile reads one file from rd into a new file at path. The
// destination is created before the first byte is read and must not exist.
// On failure a partially written destination is left in place.
func (r *Receiver) ReceiveFile(rd io.Reader, path string) (*Result, error) {
	r.mu.Lock()
	sess := newSession("receive", r.protocol, path, r.progressCallback, r.timeProvider)
	r.mu.Unlock()

	logrus.WithFields(sess.fields("ReceiveFile")).Info("Starting file receive")

	if err := sess.createDestination(); err != nil {
		return nil, err
	}

	var err error
	switch r.protocol {
	case ProtocolSentinel:
		err = receiveSentinel(sess, rd)
	default:
		err = receiveSizeDeclared(sess, rd)
	}
	if closeErr := sess.close(); err == nil && closeErr != nil {
		err = newError(KindFileSystem, "close", path, closeErr)
	}
	if err != nil {
		logrus.WithFields(sess.fields("ReceiveFile")).WithFields(logrus.Fields{
			"received": sess.moved,
			"error":    err.Error(),
		}).Warn("File receive aborted; partial destination left on disk")
		return nil, err
	}

	result := sess.result()
	logrus.WithFields(sess.fields("ReceiveFile")).WithFields(logrus.Fields{
		"bytes":   result.Bytes,
		"chunks":  result.Chunks,
		"elapsed": result.Elapsed,
		"digest":  result.DigestHex(),
	}).Info("File receive completed")

	return result, nil
}

// ReceiveSentinel receives a sentinel-terminated transfer from rd into path.
func ReceiveSentinel(rd io.Reader, path string) (*Result, error) {
	r, err := NewReceiver(ProtocolSentinel)
	if err != nil {
		return nil, err
	}
	return r.ReceiveFile(rd, path)
}

// ReceiveSizeDeclared receives a size-declared transfer from rd into path.
func ReceiveSizeDeclared(rd io.Reader, path string) (*Result, error) {
	r, err := NewReceiver(ProtocolSizeDeclared)
	if err != nil {
		return nil, err
	}
	return r.ReceiveFile(rd, path)
}
