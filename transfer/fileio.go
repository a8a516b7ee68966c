package transfer

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// destinationPerm is the mode of files created by a receiver.
const destinationPerm = 0o644

// openSource opens path for sequential reading and records its size. The size
// is taken once here and never re-read.
func (s *session) openSource() error {
	logrus.WithFields(s.fields("openSource")).Debug("Opening source file")

	f, err := os.Open(s.path)
	if err != nil {
		logrus.WithFields(s.fields("openSource")).WithField("error", err.Error()).
			Error("Failed to open source file")
		return newError(KindFileSystem, "open", s.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return newError(KindFileSystem, "stat", s.path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		logrus.WithFields(s.fields("openSource")).WithField("mode", info.Mode().String()).
			Error("Source is not a regular file")
		return newError(KindFileSystem, "open", s.path, fmt.Errorf("%w: mode %s", ErrNotRegularFile, info.Mode()))
	}

	s.file = f
	s.totalSize = uint64(info.Size())
	s.totalKnown = true
	return nil
}

// createDestination creates path for appending. It fails, leaving any
// existing file untouched, if something already exists at path.
func (s *session) createDestination() error {
	logrus.WithFields(s.fields("createDestination")).Debug("Creating destination file")

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL|os.O_APPEND, destinationPerm)
	if err != nil {
		logrus.WithFields(s.fields("createDestination")).WithField("error", err.Error()).
			Error("Failed to create destination file")
		return newError(KindFileSystem, "create", s.path, err)
	}

	s.file = f
	return nil
}

// writeDestination appends data to the destination file.
func (s *session) writeDestination(data []byte) error {
	n, err := s.file.Write(data)
	if err == nil && n != len(data) {
		err = fmt.Errorf("wrote %d of %d bytes", n, len(data))
	}
	if err != nil {
		logrus.WithFields(s.fields("writeDestination")).WithFields(logrus.Fields{
			"chunk_bytes": len(data),
			"error":       err.Error(),
		}).Error("Failed to write chunk to destination")
		return newError(KindFileSystem, "write", s.path, err)
	}
	return nil
}
