//go:build !cgo

package compress

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdDecoderPool pools zstd decoders for reuse.
//
// klauspost decoders run allocation free once warmed up. Each decoder is
// single threaded and caps its window at MaxDecompressedSize, so a hostile
// snapshot cannot make Decompress allocate without bound.
var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(MaxDecompressedSize),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}

		return decoder
	},
}

// zstdEncoderPool pools zstd encoders at the default speed level.
var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
		)
		if err != nil {
			// This should never happen with valid options
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}

		return encoder
	},
}

// Compress compresses the input data using Zstandard compression.
//
// Uses a pooled encoder. EncodeAll keeps no state between calls, so the
// encoder goes back to the pool unchanged.
//
// Parameters:
//   - data: Input data to compress
//
// Returns:
//   - []byte: Zstd frame holding the compressed data
//   - error: Always nil; kept to satisfy Codec
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	encoder, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses Zstd-compressed data.
// Uses a pooled decoder.
//
// The input is validated as a zstd frame; corrupted data or data compressed
// with another codec returns an error rather than garbage.
//
// Parameters:
//   - data: Zstd frame to decompress
//
// Returns:
//   - []byte: Decompressed data (nil if input is empty)
//   - error: Wrapped zstd error if the frame is invalid or exceeds MaxDecompressedSize
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoder, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)

	// DecodeAll is stateless; the decoder stays reusable after a failure.
	decompressed, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	return decompressed, nil
}
