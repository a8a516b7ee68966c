package transfer

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/chunksend/frame"
	"github.com/opd-ai/chunksend/limits"
)

func sizedWire(total, chunkSize uint64, data []byte) []byte {
	var buf bytes.Buffer
	_ = frame.WriteUint64(&buf, total)
	_ = frame.WriteUint64(&buf, chunkSize)
	buf.Write(data)
	return buf.Bytes()
}

// TestSizeDeclaredScenarios covers empty, partial-final and exact-multiple
// payloads on both sides of the wire.
func TestSizeDeclaredScenarios(t *testing.T) {
	tests := []struct {
		name       string
		size       int
		chunkSize  uint64
		wantChunks []uint64
	}{
		{"empty_file", 0, 1024, []uint64{}},
		{"partial_final_chunk", 2500, 1000, []uint64{1000, 1000, 500}},
		{"exact_multiple", 2000, 1000, []uint64{1000, 1000}},
		{"single_byte_chunks", 5, 1, []uint64{1, 1, 1, 1, 1}},
		{"file_smaller_than_chunk", 10, 1024, []uint64{10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := patterned(tt.size)
			src := writeSource(t, data)

			sender, err := NewSender(ProtocolSizeDeclared, tt.chunkSize)
			require.NoError(t, err)
			sent := &progressRecorder{}
			sender.OnProgress(sent.record)

			var wire bytes.Buffer
			res, err := sender.SendFile(&wire, src)
			require.NoError(t, err)

			// Wire image: two raw headers followed by the bytes, nothing else.
			require.Equal(t, 2*frame.HeaderSize+tt.size, wire.Len())
			assert.Equal(t, uint64(tt.size), binary.BigEndian.Uint64(wire.Bytes()[0:8]))
			assert.Equal(t, tt.chunkSize, binary.BigEndian.Uint64(wire.Bytes()[8:16]))
			assert.Equal(t, data, wire.Bytes()[16:])

			assert.Equal(t, uint64(tt.size), res.Bytes)
			assert.Equal(t, uint64(tt.size), res.TotalSize)
			assert.Equal(t, uint64(len(tt.wantChunks)), res.Chunks)
			assert.Equal(t, tt.wantChunks, sent.chunkSizes())

			// Trailing bytes after the payload must not be consumed.
			trailer := []byte("NEXT")
			rd := newCountingReader(append(append([]byte{}, wire.Bytes()...), trailer...))

			receiver, err := NewReceiver(ProtocolSizeDeclared)
			require.NoError(t, err)
			received := &progressRecorder{}
			receiver.OnProgress(received.record)

			dst := destinationPath(t)
			rres, err := receiver.ReceiveFile(rd, dst)
			require.NoError(t, err)

			assert.Equal(t, uint64(tt.size), rres.Bytes)
			assert.Equal(t, tt.chunkSize, rres.ChunkSize)
			assert.Equal(t, tt.wantChunks, received.chunkSizes())
			assert.Equal(t, 2+len(tt.wantChunks), rd.calls, "one read per header and per chunk")
			assert.Equal(t, len(trailer), rd.r.Len(), "receiver read past the declared size")

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, data, got)
			assert.Equal(t, res.Digest, rres.Digest)
		})
	}
}

func TestSizeDeclaredChunkCountLaw(t *testing.T) {
	sizes := []int{1, 999, 1000, 1001, 4096, 10000, 65537}
	chunks := []uint64{1, 7, 1000, 4096}

	for _, n := range sizes {
		for _, c := range chunks {
			src := writeSource(t, patterned(n))
			var wire bytes.Buffer
			sent := &progressRecorder{}
			sender, err := NewSender(ProtocolSizeDeclared, c)
			require.NoError(t, err)
			sender.OnProgress(sent.record)

			res, err := sender.SendFile(&wire, src)
			require.NoError(t, err)

			wantCount := (uint64(n) + c - 1) / c
			require.Equal(t, wantCount, res.Chunks, "N=%d c=%d", n, c)

			got := sent.chunkSizes()
			last := got[len(got)-1]
			assert.Equal(t, uint64(n)-c*(wantCount-1), last, "N=%d c=%d", n, c)
			assert.True(t, last > 0 && last <= c)
			for _, s := range got[:len(got)-1] {
				assert.Equal(t, c, s)
			}
		}
	}
}

func TestSizeDeclaredProgressReportsTotal(t *testing.T) {
	src := writeSource(t, patterned(2500))
	var wire bytes.Buffer
	_, err := SendSizeDeclared(&wire, src, 1000)
	require.NoError(t, err)

	receiver, err := NewReceiver(ProtocolSizeDeclared)
	require.NoError(t, err)
	rec := &progressRecorder{}
	receiver.OnProgress(rec.record)

	_, err = receiver.ReceiveFile(&wire, destinationPath(t))
	require.NoError(t, err)

	require.Len(t, rec.updates, 3)
	var prev uint64
	for i, u := range rec.updates {
		assert.True(t, u.TotalKnown)
		assert.Equal(t, uint64(2500), u.Total)
		assert.Equal(t, uint64(i+1), u.Chunks)
		assert.Greater(t, u.Transferred, prev)
		prev = u.Transferred
	}
	assert.Equal(t, uint64(2500), prev)
}

func TestSizeDeclaredTruncatedStream(t *testing.T) {
	data := patterned(2500)
	tests := []struct {
		name      string
		wire      []byte
		wantBytes int
	}{
		{"no_headers", nil, 0},
		{"half_total_header", sizedWire(2500, 1000, nil)[:4], 0},
		{"missing_chunk_header", sizedWire(2500, 1000, nil)[:8], 0},
		{"inside_first_chunk", sizedWire(2500, 1000, data[:400]), 0},
		{"inside_last_chunk", sizedWire(2500, 1000, data[:2200]), 2000},
		{"missing_last_chunk", sizedWire(2500, 1000, data[:2000]), 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := destinationPath(t)
			_, err := ReceiveSizeDeclared(bytes.NewReader(tt.wire), dst)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindStream), "kind = %s", KindOf(err))
			assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

			// The partial destination stays on disk.
			got, statErr := os.ReadFile(dst)
			require.NoError(t, statErr)
			assert.Equal(t, data[:tt.wantBytes], got)
		})
	}
}

func TestSizeDeclaredRejectsUnusableChunkSize(t *testing.T) {
	tests := []struct {
		name      string
		total     uint64
		chunkSize uint64
		wantErr   error
	}{
		{"zero_chunk", 10, 0, ErrZeroChunkSize},
		{"oversized_chunk", 10, limits.MaxChunkSize + 1, ErrChunkTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReceiveSizeDeclared(bytes.NewReader(sizedWire(tt.total, tt.chunkSize, patterned(10))), destinationPath(t))
			require.Error(t, err)
			assert.True(t, IsKind(err, KindProtocol), "kind = %s", KindOf(err))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSizeDeclaredEmptyPayloadIgnoresChunkSize(t *testing.T) {
	dst := destinationPath(t)
	res, err := ReceiveSizeDeclared(bytes.NewReader(sizedWire(0, 0, nil)), dst)
	require.NoError(t, err)
	assert.Zero(t, res.Bytes)
	assert.Zero(t, res.Chunks)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestSizeDeclaredSenderStreamFailure(t *testing.T) {
	src := writeSource(t, patterned(testFileSize2KB))

	tests := []struct {
		name  string
		limit int
	}{
		{"total_header", 3},
		{"chunk_header", 12},
		{"first_chunk", 16 + 100},
		{"second_chunk", 16 + testChunk1K + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SendSizeDeclared(&failAfterWriter{limit: tt.limit}, src, testChunk1K)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindStream), "kind = %s", KindOf(err))
			assert.ErrorIs(t, err, errStreamReset)
		})
	}
}

// The declared total is taken once from Stat; a source that changes size
// mid-session never changes what goes on the wire.
func TestSizeDeclaredSourceChangesDuringSend(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		resize   func(t *testing.T, path string)
		wantErr  bool
		wantWire int
	}{
		{
			name: "shrinks",
			size: 3000,
			resize: func(t *testing.T, path string) {
				require.NoError(t, os.Truncate(path, 1500))
			},
			wantErr:  true,
			wantWire: 2*frame.HeaderSize + 1000,
		},
		{
			name: "grows",
			size: 2000,
			resize: func(t *testing.T, path string) {
				f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
				require.NoError(t, err)
				_, err = f.Write(patterned(5000))
				require.NoError(t, err)
				require.NoError(t, f.Close())
			},
			wantWire: 2*frame.HeaderSize + 2000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := patterned(tt.size)
			src := writeSource(t, data)

			sender, err := NewSender(ProtocolSizeDeclared, 1000)
			require.NoError(t, err)
			sender.OnProgress(func(p Progress) {
				if p.Chunks == 1 {
					tt.resize(t, src)
				}
			})

			var wire bytes.Buffer
			res, err := sender.SendFile(&wire, src)
			assert.Equal(t, tt.wantWire, wire.Len())
			assert.Equal(t, uint64(tt.size), binary.BigEndian.Uint64(wire.Bytes()[0:8]))

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindFileSystem), "kind = %s", KindOf(err))
				assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint64(tt.size), res.Bytes)
			assert.Equal(t, uint64(tt.size), res.TotalSize)
			assert.Equal(t, data, wire.Bytes()[16:])
		})
	}
}
