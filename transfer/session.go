package transfer

import (
	"encoding/hex"
	"hash"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// defaultTimeProvider is the package-level default time provider.
var defaultTimeProvider TimeProvider = DefaultTimeProvider{}

// Progress is a snapshot of a running session passed to a ProgressFunc.
type Progress struct {
	Transferred uint64 // bytes moved so far
	Total       uint64 // expected bytes, valid when TotalKnown
	TotalKnown  bool   // false for a sentinel receiver
	Chunks      uint64 // chunks moved so far
	LastChunk   uint64 // size of the chunk that triggered this update
}

// ProgressFunc observes session progress. It is called synchronously after
// every chunk. A panic inside it is recovered and logged; it never aborts the
// transfer.
type ProgressFunc func(Progress)

// Result summarizes a completed session.
type Result struct {
	SessionID string
	Protocol  Protocol
	TotalSize uint64
	// ChunkSize is the configured chunk size on the sender and on a
	// size-declared receiver; on a sentinel receiver it is the largest frame
	// payload observed.
	ChunkSize uint64
	Bytes     uint64
	Chunks    uint64
	// Digest is the BLAKE2b-256 of the bytes read from the source (sender)
	// or written to the destination (receiver). It never goes on the wire.
	Digest  []byte
	Elapsed time.Duration
}

// DigestHex returns the digest as a lowercase hex string.
func (r *Result) DigestHex() string {
	return hex.EncodeToString(r.Digest)
}

// session holds the state of one file transfer over one stream.
type session struct {
	id         string
	role       string
	protocol   Protocol
	path       string
	file       *os.File
	totalSize  uint64
	totalKnown bool
	chunkSize  uint64
	moved      uint64
	chunks     uint64
	digest     hash.Hash
	started    time.Time
	progress   ProgressFunc
	tp         TimeProvider
}

func newSession(role string, protocol Protocol, path string, progress ProgressFunc, tp TimeProvider) *session {
	if tp == nil {
		tp = defaultTimeProvider
	}
	return &session{
		id:       uuid.NewString(),
		role:     role,
		protocol: protocol,
		path:     path,
		digest:   newDigest(),
		started:  tp.Now(),
		progress: progress,
		tp:       tp,
	}
}

func newDigest() hash.Hash {
	// New256 only fails for keys longer than 64 bytes.
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	return h
}

// fields returns the log fields identifying the session.
func (s *session) fields(function string) logrus.Fields {
	return logrus.Fields{
		"function":   function,
		"session_id": s.id,
		"role":       s.role,
		"protocol":   s.protocol.String(),
		"path":       s.path,
	}
}

// advance accounts for one chunk of n bytes that has been fully moved.
func (s *session) advance(data []byte) {
	n := uint64(len(data))
	s.digest.Write(data)
	s.moved += n
	s.chunks++

	logrus.WithFields(logrus.Fields{
		"function":    "advance",
		"session_id":  s.id,
		"chunk":       s.chunks,
		"chunk_bytes": n,
		"transferred": s.moved,
	}).Debug("Chunk transferred")

	s.notify(n)
}

// notify invokes the progress hook, containing any panic it raises.
func (s *session) notify(last uint64) {
	if s.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "notify",
				"session_id": s.id,
				"panic":      r,
			}).Warn("Progress callback panicked; continuing transfer")
		}
	}()
	s.progress(Progress{
		Transferred: s.moved,
		Total:       s.totalSize,
		TotalKnown:  s.totalKnown,
		Chunks:      s.chunks,
		LastChunk:   last,
	})
}

// close releases the session's file handle. The returned error matters only
// for the receiver, whose buffered data may fail to reach disk.
func (s *session) close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		logrus.WithFields(s.fields("close")).WithField("error", err.Error()).
			Warn("Failed to close file handle")
	}
	return err
}

func (s *session) result() *Result {
	return &Result{
		SessionID: s.id,
		Protocol:  s.protocol,
		TotalSize: s.totalSize,
		ChunkSize: s.chunkSize,
		Bytes:     s.moved,
		Chunks:    s.chunks,
		Digest:    s.digest.Sum(nil),
		Elapsed:   s.tp.Since(s.started),
	}
}
