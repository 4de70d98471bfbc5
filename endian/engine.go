// Package endian provides the byte order used on the SensorCloud wire.
//
// Every numeric field exchanged with the service is XDR encoded, which is
// always big-endian (network byte order). The package wraps encoding/binary so
// encoders can append directly into pooled buffers instead of going through a
// temporary scratch slice:
//
//	engine := endian.Network()
//	buf = engine.AppendUint64(buf, timestamp)
//
// # Thread Safety
//
// The returned EndianEngine is immutable and safe for concurrent use.
package endian

import (
	"encoding/binary"
	"math"
)

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Network returns the big-endian engine mandated by XDR.
func Network() EndianEngine {
	return binary.BigEndian
}

// AppendFloat32 appends the IEEE-754 bits of v using the given engine.
func AppendFloat32(engine EndianEngine, buf []byte, v float32) []byte {
	return engine.AppendUint32(buf, math.Float32bits(v))
}

// Float32 reads an IEEE-754 single precision value from the first 4 bytes of b.
func Float32(engine EndianEngine, b []byte) float32 {
	return math.Float32frombits(engine.Uint32(b))
}
