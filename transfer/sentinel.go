package transfer

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/chunksend/frame"
	"github.com/opd-ai/chunksend/limits"
)

// sendSentinel streams the source as frames of at most chunkSize bytes and
// finishes with one zero-length frame.
func sendSentinel(s *session, w io.Writer) error {
	enc := frame.NewEncoder(w)
	// A source no larger than one chunk needs no more buffer than its size.
	buf := make([]byte, min(s.chunkSize, max(s.totalSize, 1)))

	for {
		n, err := io.ReadFull(s.file, buf)
		if n > 0 {
			chunk := buf[:n]
			if werr := enc.WriteFrame(chunk); werr != nil {
				logrus.WithFields(s.fields("sendSentinel")).WithFields(logrus.Fields{
					"chunk": s.chunks + 1,
					"error": werr.Error(),
				}).Error("Failed to write frame")
				return newError(KindStream, "write frame", "", werr)
			}
			s.advance(chunk)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			logrus.WithFields(s.fields("sendSentinel")).WithField("error", err.Error()).
				Error("Failed to read source file")
			return newError(KindFileSystem, "read", s.path, err)
		}
	}

	if err := enc.WriteSentinel(); err != nil {
		logrus.WithFields(s.fields("sendSentinel")).WithField("error", err.Error()).
			Error("Failed to write sentinel frame")
		return newError(KindStream, "write sentinel", "", err)
	}

	logrus.WithFields(s.fields("sendSentinel")).WithFields(logrus.Fields{
		"frames": enc.Frames(),
		"bytes":  enc.PayloadBytes(),
	}).Debug("Sentinel written")

	return nil
}

// receiveSentinel appends frame payloads to the destination until the
// zero-length frame arrives.
func receiveSentinel(s *session, r io.Reader) error {
	dec := frame.NewDecoder(r)
	dec.SetMaxPayload(limits.MaxChunkSize)

	for {
		payload, err := dec.Next()
		if err != nil {
			return classifyFrameError(s, err)
		}
		if len(payload) == 0 {
			break
		}
		if uint64(len(payload)) > s.chunkSize {
			s.chunkSize = uint64(len(payload))
		}
		if err := s.writeDestination(payload); err != nil {
			return err
		}
		s.advance(payload)
	}

	s.totalSize = s.moved
	s.totalKnown = true
	return nil
}

func classifyFrameError(s *session, err error) error {
	fields := s.fields("receiveSentinel")
	fields["frames"] = s.chunks
	fields["error"] = err.Error()

	switch {
	case errors.Is(err, frame.ErrPayloadTooLarge):
		logrus.WithFields(fields).Error("Peer sent oversized frame")
		return newError(KindProtocol, "read frame", "", errors.Join(ErrChunkTooLarge, err))
	case err == io.EOF:
		logrus.WithFields(fields).Error("Stream closed before sentinel frame")
		return newError(KindStream, "read frame", "", errors.Join(ErrMissingSentinel, io.ErrUnexpectedEOF))
	default:
		logrus.WithFields(fields).Error("Failed to read frame")
		return newError(KindStream, "read frame", "", err)
	}
}
