// Package limits provides centralized chunk and frame size constants and the
// arithmetic both transfer variants use to walk a payload.
//
// # Size Hierarchy
//
//   - MinChunkSize (1 byte): the smallest chunk that makes progress.
//   - DefaultChunkSize (1 MiB): used when configuration does not set one.
//   - MaxChunkSize (1 GiB): the largest buffer a receiver allocates for a chunk.
//   - MaxFramePayload (2^32 bytes): the default ceiling for a frame decoder.
//
// # Chunk Arithmetic
//
// ChunkCount and NextChunkLen encode the size-declared accounting rule: chunks
// are full-size except the last, which is clamped to the remaining bytes, and a
// payload that is an exact multiple of the chunk size ends without a trailing
// empty chunk:
//
//	for done := uint64(0); done < total; {
//	    n := limits.NextChunkLen(total, done, chunkSize)
//	    // move n bytes
//	    done += n
//	}
//
// # Error Types
//
//   - ErrChunkSizeZero: returned for a zero chunk size
//   - ErrChunkSizeTooLarge: returned when a chunk size exceeds MaxChunkSize
//   - ErrFrameTooLarge: returned when a frame length exceeds the accepted maximum
package limits
