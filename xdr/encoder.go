package xdr

import (
	"github.com/sensorcloud-go/sensorcloud/endian"
	"github.com/sensorcloud-go/sensorcloud/internal/pool"
)

var zeroPad [4]byte

// Encoder appends XDR items to a pooled buffer.
type Encoder struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
}

// NewEncoder creates an encoder backed by a buffer from the payload pool.
//
// The caller must call Release once the encoded bytes have been sent, or the
// buffer is left to the garbage collector instead of the pool.
func NewEncoder() *Encoder {
	return &Encoder{
		buf:    pool.GetPayloadBuffer(),
		engine: endian.Network(),
	}
}

// Grow reserves room for n more bytes.
func (e *Encoder) Grow(n int) {
	e.buf.Grow(n)
}

// PutInt32 appends a signed int.
func (e *Encoder) PutInt32(v int32) {
	e.buf.B = e.engine.AppendUint32(e.buf.B, uint32(v)) //nolint:gosec
}

// PutUint32 appends an unsigned int.
func (e *Encoder) PutUint32(v uint32) {
	e.buf.B = e.engine.AppendUint32(e.buf.B, v)
}

// PutEnum appends an enum discriminant.
func (e *Encoder) PutEnum(v int32) {
	e.PutInt32(v)
}

// PutBool appends a boolean as the enum values 0 or 1.
func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint32(1)
		return
	}
	e.PutUint32(0)
}

// PutUint64 appends an unsigned hyper.
func (e *Encoder) PutUint64(v uint64) {
	e.buf.B = e.engine.AppendUint64(e.buf.B, v)
}

// PutInt64 appends a signed hyper.
func (e *Encoder) PutInt64(v int64) {
	e.buf.B = e.engine.AppendUint64(e.buf.B, uint64(v)) //nolint:gosec
}

// PutFloat32 appends a single precision float.
func (e *Encoder) PutFloat32(v float32) {
	e.buf.B = endian.AppendFloat32(e.engine, e.buf.B, v)
}

// PutOpaque appends variable-length opaque data with its length prefix.
func (e *Encoder) PutOpaque(data []byte) {
	e.buf.Grow(4 + len(data) + 3)
	e.PutUint32(uint32(len(data))) //nolint:gosec
	e.PutFixedOpaque(data)
}

// PutString appends a length-prefixed string.
func (e *Encoder) PutString(s string) {
	e.buf.Grow(4 + len(s) + 3)
	e.PutUint32(uint32(len(s))) //nolint:gosec
	e.buf.B = append(e.buf.B, s...)
	e.buf.B = append(e.buf.B, zeroPad[:padding(len(s))]...)
}

// PutFixedOpaque appends fixed-length opaque data. The length is implied by
// the protocol and not written.
func (e *Encoder) PutFixedOpaque(data []byte) {
	e.buf.B = append(e.buf.B, data...)
	e.buf.B = append(e.buf.B, zeroPad[:padding(len(data))]...)
}

// Bytes returns the encoded bytes. The slice is only valid until Release.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int {
	return e.buf.Len()
}

// Finish returns a copy of the encoded bytes and releases the encoder.
func (e *Encoder) Finish() []byte {
	out := e.buf.Clone()
	e.Release()

	return out
}

// Release returns the buffer to the pool. The encoder must not be used again.
func (e *Encoder) Release() {
	if e.buf != nil {
		pool.PutPayloadBuffer(e.buf)
		e.buf = nil
	}
}

// padding returns the number of zero bytes that align n to four bytes.
func padding(n int) int {
	return (4 - n%4) % 4
}
