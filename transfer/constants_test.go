package transfer

// Common test file size constants.
const (
	testChunk1K     = 1024
	testFileSize1KB = 1024
	testFileSize2KB = 2048
	testFileSize1MB = 1024 * 1024
)
