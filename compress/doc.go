// Package compress provides the compression codecs used for request bodies,
// response bodies and state snapshots.
//
// Supported algorithms:
//   - None: No compression
//   - Gzip: RFC 1952, the default Content-Encoding for uploads
//   - Zstd: Zstandard, accepted as a Content-Encoding and used for snapshots
//   - S2: Snappy-compatible, fast snapshot compression
//   - LZ4: Block format, fast snapshot compression
//
// Only gzip and zstd have an HTTP Content-Encoding token; S2 and LZ4 frames are
// not self-describing and are only used inside snapshots, whose header records
// the algorithm.
//
// # Usage
//
//	codec, err := compress.CreateCodec(format.CompressionGzip, "request body")
//	if err != nil {
//	    return err
//	}
//	body, stats, err := compress.CompressWithStats(codec, format.CompressionGzip, payload)
//	if err == nil && stats.Beneficial() {
//	    req.Header.Set("Content-Encoding", "gzip")
//	}
//
// # Build Tags
//
// With cgo enabled Zstd uses github.com/valyala/gozstd (libzstd); otherwise the
// pure Go github.com/klauspost/compress/zstd implementation is used. Both
// produce standard Zstandard frames.
//
// # Thread Safety
//
// All codec implementations are stateless values and safe for concurrent use.
// Encoders and decoders are pooled internally.
package compress
