package compress

import (
	"fmt"
	"time"

	"github.com/sensorcloud-go/sensorcloud/format"
)

// MaxDecompressedSize bounds the output of every Decompress call.
const MaxDecompressedSize = 64 * 1024 * 1024 // 64MiB

// Compressor compresses a complete payload.
//
// The returned slice is owned by the caller and the input is never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
//
// Decompress returns an error if data is corrupted, was produced by another
// algorithm or would expand beyond MaxDecompressedSize.
//
// Thread Safety: implementations must be safe for concurrent use.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// CompressionStats describes one compression of a request body or snapshot.
type CompressionStats struct {
	// Algorithm identifies the compression algorithm used
	Algorithm format.CompressionType

	// OriginalSize is the size of input data before compression
	OriginalSize int64

	// CompressedSize is the size of data after compression
	CompressedSize int64

	// Duration is the time taken to compress the data
	Duration time.Duration
}

// CompressionRatio returns the compression ratio (compressed size / original size).
//
// Values less than 1.0 indicate successful compression.
//
// Returns:
//   - float64: Compression ratio (0.0 if original size is zero)
func (s CompressionStats) CompressionRatio() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return float64(s.CompressedSize) / float64(s.OriginalSize)
}

// SpaceSavings returns the space savings as a percentage (0-100%).
func (s CompressionStats) SpaceSavings() float64 {
	if s.OriginalSize == 0 {
		return 0.0
	}

	return (1.0 - s.CompressionRatio()) * 100.0
}

// Beneficial reports whether the compressed form is strictly smaller.
func (s CompressionStats) Beneficial() bool {
	return s.CompressedSize < s.OriginalSize
}

// CompressWithStats compresses data with codec and reports how it went.
//
// Parameters:
//   - codec: Codec to compress with
//   - algorithm: Compression type of codec, recorded in the stats
//   - data: Input data
//
// Returns:
//   - []byte: Compressed data
//   - CompressionStats: Sizes and duration of the compression
//   - error: Compression error if any
func CompressWithStats(codec Compressor, algorithm format.CompressionType, data []byte) ([]byte, CompressionStats, error) {
	start := time.Now()
	out, err := codec.Compress(data)
	stats := CompressionStats{
		Algorithm:      algorithm,
		OriginalSize:   int64(len(data)),
		CompressedSize: int64(len(out)),
		Duration:       time.Since(start),
	}
	if err != nil {
		return nil, stats, fmt.Errorf("%s compression failed: %w", algorithm, err)
	}

	return out, stats, nil
}

// CreateCodec is a factory function that creates a Codec based on the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Gzip, Zstd, S2, or LZ4)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Codec instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionGzip:
		return NewGzipCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionGzip: NewGzipCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}

// ForContentEncoding returns the codec registered for an HTTP Content-Encoding
// token ("gzip" or "zstd").
func ForContentEncoding(token string) (Codec, format.CompressionType, bool) {
	switch token {
	case format.CompressionGzip.ContentEncoding():
		return builtinCodecs[format.CompressionGzip], format.CompressionGzip, true
	case format.CompressionZstd.ContentEncoding():
		return builtinCodecs[format.CompressionZstd], format.CompressionZstd, true
	default:
		return nil, 0, false
	}
}
