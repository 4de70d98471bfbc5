// Package xdr implements the subset of External Data Representation (RFC 4506)
// used by the SensorCloud wire protocol.
//
// All quantities are big-endian and every item occupies a multiple of four
// bytes:
//
//	int / unsigned int / enum   4 bytes
//	hyper / unsigned hyper      8 bytes
//	float                       4 bytes, IEEE-754 single precision
//	opaque<> / string<>         4-byte length, data, zero padding to 4 bytes
//	opaque[n]                   data, zero padding to 4 bytes
//
// Encoder appends into a pooled buffer and must be finished with Finish or
// Release. Decoder is a forward-only cursor over a byte slice; every read
// that would run past the end, or a declared length above the caller's bound,
// returns an error wrapping errs.ErrFormat and leaves the cursor unchanged.
//
// Neither type is safe for concurrent use.
package xdr
