package endian

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetwork(t *testing.T) {
	engine := Network()

	require.Implements(t, (*EndianEngine)(nil), engine)
	require.Equal(t, binary.BigEndian, engine)

	buf := engine.AppendUint32(nil, 0x01020304)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, buf, "XDR puts the most significant byte first")

	buf = engine.AppendUint64(nil, 0x0102030405060708)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, buf)
	require.Equal(t, uint64(0x0102030405060708), engine.Uint64(buf))
}

func TestFloat32RoundTrip(t *testing.T) {
	engine := Network()

	values := []float32{0, 1, -1, 10.5, math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(1))}
	for _, v := range values {
		buf := AppendFloat32(engine, nil, v)
		require.Len(t, buf, 4)
		require.Equal(t, v, Float32(engine, buf))
	}

	// 1.0 is 0x3F800000
	require.Equal(t, []byte{0x3F, 0x80, 0x00, 0x00}, AppendFloat32(engine, nil, 1.0))
}

func TestFloat32NaN(t *testing.T) {
	engine := Network()

	buf := AppendFloat32(engine, nil, float32(math.NaN()))
	require.True(t, math.IsNaN(float64(Float32(engine, buf))))
}
