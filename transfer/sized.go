package transfer

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chunksend/frame"
	"github.com/opd-ai/chunksend/limits"
)

// sendSizeDeclared writes the total and chunk size headers, then exactly
// totalSize bytes in chunks of chunkSize with a clamped final chunk.
func sendSizeDeclared(s *session, w io.Writer) error {
	if err := frame.WriteUint64(w, s.totalSize); err != nil {
		return headerError(s, "sendSizeDeclared", "write total size", err)
	}
	if err := frame.WriteUint64(w, s.chunkSize); err != nil {
		return headerError(s, "sendSizeDeclared", "write chunk size", err)
	}

	buf := make([]byte, min(s.chunkSize, s.totalSize))
	for s.moved < s.totalSize {
		chunk := buf[:limits.NextChunkLen(s.totalSize, s.moved, s.chunkSize)]

		if _, err := io.ReadFull(s.file, chunk); err != nil {
			logrus.WithFields(s.fields("sendSizeDeclared")).WithFields(logrus.Fields{
				"sent":       s.moved,
				"total_size": s.totalSize,
				"error":      err.Error(),
			}).Error("Source file ended before declared size")
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return newError(KindFileSystem, "read", s.path, err)
		}

		if err := frame.WriteChunk(w, chunk); err != nil {
			logrus.WithFields(s.fields("sendSizeDeclared")).WithFields(logrus.Fields{
				"chunk": s.chunks + 1,
				"error": err.Error(),
			}).Error("Failed to write chunk")
			return newError(KindStream, "write chunk", "", err)
		}
		s.advance(chunk)
	}

	return nil
}

// receiveSizeDeclared reads the two headers and then exactly totalSize bytes.
// The loop bound is strict and the final read is clamped, so a total that is
// an exact multiple of the chunk size ends without an extra read.
func receiveSizeDeclared(s *session, r io.Reader) error {
	total, err := frame.ReadUint64(r)
	if err != nil {
		return headerError(s, "receiveSizeDeclared", "read total size", err)
	}
	chunkSize, err := frame.ReadUint64(r)
	if err != nil {
		return headerError(s, "receiveSizeDeclared", "read chunk size", err)
	}

	if total > 0 {
		if chunkSize == 0 {
			return protocolError(s, ErrZeroChunkSize, total, chunkSize)
		}
		if chunkSize > limits.MaxChunkSize {
			return protocolError(s, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, chunkSize, uint64(limits.MaxChunkSize)), total, chunkSize)
		}
	}

	s.totalSize = total
	s.totalKnown = true
	s.chunkSize = chunkSize

	logrus.WithFields(s.fields("receiveSizeDeclared")).WithFields(logrus.Fields{
		"total_size": total,
		"chunk_size": chunkSize,
		"chunks":     limits.ChunkCount(total, chunkSize),
	}).Info("Received transfer headers")

	buf := make([]byte, min(chunkSize, total))
	for s.moved < s.totalSize {
		chunk := buf[:limits.NextChunkLen(s.totalSize, s.moved, s.chunkSize)]

		if err := frame.ReadChunk(r, chunk); err != nil {
			logrus.WithFields(s.fields("receiveSizeDeclared")).WithFields(logrus.Fields{
				"received":   s.moved,
				"total_size": s.totalSize,
				"error":      err.Error(),
			}).Error("Stream ended before declared size")
			return newError(KindStream, "read chunk", "", err)
		}
		if err := s.writeDestination(chunk); err != nil {
			return err
		}
		s.advance(chunk)
	}

	return nil
}

func headerError(s *session, function, op string, err error) error {
	logrus.WithFields(s.fields(function)).WithFields(logrus.Fields{
		"operation": op,
		"error":     err.Error(),
	}).Error("Failed to transfer size header")
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return newError(KindStream, op, "", err)
}

func protocolError(s *session, err error, total, chunkSize uint64) error {
	logrus.WithFields(s.fields("receiveSizeDeclared")).WithFields(logrus.Fields{
		"total_size": total,
		"chunk_size": chunkSize,
		"error":      err.Error(),
	}).Error("Peer declared an unusable chunk size")
	return newError(KindProtocol, "read headers", "", err)
}
