// Package transfer moves one file over one reliable byte stream.
//
// Two wire protocols are supported and both peers must agree on which one is
// in use; nothing on the wire identifies it.
//
// ProtocolSizeDeclared sends the total size and the chunk size as raw
// 8-byte big-endian integers, then the file bytes in unprefixed chunks. The
// last chunk is clamped to the bytes remaining:
//
//	[total u64][chunk u64][chunk 1]...[chunk n]
//
// ProtocolSentinel sends length-prefixed frames and terminates the stream with
// a single zero-length frame:
//
//	([len u64][payload])... [0 u64]
//
// A Sender reads its source sequentially and writes exactly one transfer per
// call to SendFile. A Receiver creates its destination exclusively before
// reading the stream and leaves a partial file in place when the stream
// fails. Errors are classified by Kind:
//
//	res, err := transfer.ReceiveSizeDeclared(conn, "./received.bin")
//	if transfer.IsKind(err, transfer.KindStream) {
//	    // peer went away mid-transfer
//	}
//
// Progress is reported through an optional ProgressFunc called after each
// chunk. Every Result carries a BLAKE2b-256 digest of the bytes moved so the
// two sides can be compared out of band.
package transfer
