package compress

// ZstdCompressor provides Zstandard compression.
//
// The implementation is selected at build time: gozstd (cgo) or
// klauspost/compress/zstd (pure Go). Frames are interchangeable.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
