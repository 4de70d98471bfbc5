package xdr

import (
	"github.com/sensorcloud-go/sensorcloud/endian"
	"github.com/sensorcloud-go/sensorcloud/errs"
)

// Decoder reads XDR items from a byte slice.
type Decoder struct {
	data   []byte
	off    int
	engine endian.EndianEngine
}

// NewDecoder creates a decoder positioned at the start of data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		data:   data,
		engine: endian.Network(),
	}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}

// Done reports whether every byte has been consumed.
func (d *Decoder) Done() bool {
	return d.off >= len(d.data)
}

// Offset returns the read position.
func (d *Decoder) Offset() int {
	return d.off
}

func (d *Decoder) take(n int, what string) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, errs.Formatf("truncated %s at offset %d: need %d bytes, have %d", what, d.off, n, d.Remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n

	return b, nil
}

// Uint32 reads an unsigned int.
func (d *Decoder) Uint32() (uint32, error) {
	b, err := d.take(4, "unsigned int")
	if err != nil {
		return 0, err
	}

	return d.engine.Uint32(b), nil
}

// Int32 reads a signed int.
func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err //nolint:gosec
}

// Enum reads an enum discriminant.
func (d *Decoder) Enum() (int32, error) {
	return d.Int32()
}

// Bool reads a boolean; values other than 0 and 1 are rejected.
func (d *Decoder) Bool() (bool, error) {
	v, err := d.Uint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		d.off -= 4
		return false, errs.Formatf("invalid bool value %d at offset %d", v, d.off)
	}
}

// Uint64 reads an unsigned hyper.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.take(8, "unsigned hyper")
	if err != nil {
		return 0, err
	}

	return d.engine.Uint64(b), nil
}

// Int64 reads a signed hyper.
func (d *Decoder) Int64() (int64, error) {
	v, err := d.Uint64()
	return int64(v), err //nolint:gosec
}

// Float32 reads a single precision float.
func (d *Decoder) Float32() (float32, error) {
	b, err := d.take(4, "float")
	if err != nil {
		return 0, err
	}

	return endian.Float32(d.engine, b), nil
}

// Opaque reads variable-length opaque data of at most maxLen bytes.
// The returned slice aliases the decoder's input.
func (d *Decoder) Opaque(maxLen int) ([]byte, error) {
	start := d.off
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(maxLen) { //nolint:gosec
		d.off = start
		return nil, errs.Formatf("opaque length %d at offset %d exceeds limit %d", n, start, maxLen)
	}

	b, err := d.FixedOpaque(int(n))
	if err != nil {
		d.off = start
		return nil, err
	}

	return b, nil
}

// String reads a string of at most maxLen bytes.
func (d *Decoder) String(maxLen int) (string, error) {
	b, err := d.Opaque(maxLen)
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// SkipOpaque consumes variable-length opaque data without returning it.
func (d *Decoder) SkipOpaque(maxLen int) error {
	_, err := d.Opaque(maxLen)
	return err
}

// FixedOpaque reads n bytes of fixed-length opaque data plus its padding.
func (d *Decoder) FixedOpaque(n int) ([]byte, error) {
	total := n + padding(n)
	if n < 0 || d.Remaining() < total {
		return nil, errs.Formatf("truncated opaque at offset %d: need %d bytes, have %d", d.off, total, d.Remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += total

	return b, nil
}
