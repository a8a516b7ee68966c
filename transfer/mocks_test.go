package transfer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/chunksend/frame"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// countingReader counts Read calls against the wrapped reader.
type countingReader struct {
	r     *bytes.Reader
	calls int
}

func newCountingReader(data []byte) *countingReader {
	return &countingReader{r: bytes.NewReader(data)}
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.calls++
	return c.r.Read(p)
}

var errStreamReset = errors.New("connection reset by peer")

// failAfterWriter accepts limit bytes and then fails every write.
type failAfterWriter struct {
	limit   int
	written int
}

func (f *failAfterWriter) Write(p []byte) (int, error) {
	room := f.limit - f.written
	if room <= 0 {
		return 0, errStreamReset
	}
	if len(p) > room {
		f.written += room
		return room, errStreamReset
	}
	f.written += len(p)
	return len(p), nil
}

// progressRecorder collects every progress update.
type progressRecorder struct {
	updates []Progress
}

func (p *progressRecorder) record(u Progress) {
	p.updates = append(p.updates, u)
}

func (p *progressRecorder) chunkSizes() []uint64 {
	sizes := make([]uint64, 0, len(p.updates))
	for _, u := range p.updates {
		sizes = append(sizes, u.LastChunk)
	}
	return sizes
}

func patterned(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/251)
	}
	return b
}

func writeSource(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func destinationPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "received.bin")
}

// frameLengths decodes a sentinel-protocol wire image into its frame lengths.
func frameLengths(t *testing.T, wire []byte) []int {
	t.Helper()
	dec := frame.NewDecoder(bytes.NewReader(wire))
	var lengths []int
	for {
		payload, err := dec.Next()
		if err != nil {
			require.Equal(t, 0, len(wire)-consumed(lengths), "trailing bytes after last frame")
			return lengths
		}
		lengths = append(lengths, len(payload))
	}
}

func consumed(lengths []int) int {
	n := 0
	for _, l := range lengths {
		n += frame.HeaderSize + l
	}
	return n
}
