package transfer

import (
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chunksend/limits"
)

// Sender streams files to a peer with a fixed protocol and chunk size.
// A Sender may be reused for sequential sessions.
type Sender struct {
	protocol  Protocol
	chunkSize uint64

	mu               sync.Mutex
	progressCallback ProgressFunc
	timeProvider     TimeProvider
}

// NewSender creates a Sender. chunkSize must lie in
// [limits.MinChunkSize, limits.MaxChunkSize].
func NewSender(protocol Protocol, chunkSize uint64) (*Sender, error) {
	if !protocol.Valid() {
		return nil, fmt.Errorf("transfer: unknown protocol %d", uint8(protocol))
	}
	if err := limits.ValidateChunkSize(chunkSize); err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return &Sender{
		protocol:     protocol,
		chunkSize:    chunkSize,
		timeProvider: defaultTimeProvider,
	}, nil
}

// Protocol returns the sender's wire protocol.
func (s *Sender) Protocol() Protocol { return s.protocol }

// ChunkSize returns the sender's chunk size.
func (s *Sender) ChunkSize() uint64 { return s.chunkSize }

// OnProgress sets a callback invoked after every chunk is written.
// This method is safe for concurrent use.
func (s *Sender) OnProgress(callback ProgressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressCallback = callback
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (s *Sender) SetTimeProvider(tp TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tp == nil {
		tp = defaultTimeProvider
	}
	s.timeProvider = tp
}

// SendFile transfers the file at path over w and returns once the last byte
// (and, for ProtocolSentinel, the sentinel frame) has been written. Source
// file failures are reported before anything is written to w.
func (s *Sender) SendFile(w io.Writer, path string) (*Result, error) {
	s.mu.Lock()
	sess := newSession("send", s.protocol, path, s.progressCallback, s.timeProvider)
	s.mu.Unlock()
	sess.chunkSize = s.chunkSize

	logrus.WithFields(sess.fields("SendFile")).WithField("chunk_size", s.chunkSize).
		Info("Starting file send")

	if err := sess.openSource(); err != nil {
		return nil, err
	}
	defer sess.close()

	logrus.WithFields(sess.fields("SendFile")).WithFields(logrus.Fields{
		"total_size": sess.totalSize,
		"chunks":     limits.ChunkCount(sess.totalSize, sess.chunkSize),
	}).Debug("Source file opened")

	var err error
	switch s.protocol {
	case ProtocolSentinel:
		err = sendSentinel(sess, w)
	default:
		err = sendSizeDeclared(sess, w)
	}
	if err != nil {
		return nil, err
	}

	result := sess.result()
	logrus.WithFields(sess.fields("SendFile")).WithFields(logrus.Fields{
		"bytes":   result.Bytes,
		"chunks":  result.Chunks,
		"elapsed": result.Elapsed,
		"digest":  result.DigestHex(),
	}).Info("File send completed")

	return result, nil
}

// SendSentinel sends the file at path over w using the sentinel-terminated
// protocol.
func SendSentinel(w io.Writer, path string, chunkSize uint64) (*Result, error) {
	s, err := NewSender(ProtocolSentinel, chunkSize)
	if err != nil {
		return nil, err
	}
	return s.SendFile(w, path)
}

// SendSizeDeclared sends the file at path over w using the size-declared
// protocol.
func SendSizeDeclared(w io.Writer, path string, chunkSize uint64) (*Result, error) {
	s, err := NewSender(ProtocolSizeDeclared, chunkSize)
	if err != nil {
		return nil, err
	}
	return s.SendFile(w, path)
}
