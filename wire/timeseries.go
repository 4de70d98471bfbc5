package wire

import (
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

// EncodeTimeSeriesBatch encodes an upload of points at the given sample rate.
func EncodeTimeSeriesBatch(rate series.SampleRate, points []series.Point) []byte {
	enc := xdr.NewEncoder()
	enc.Grow(timeSeriesHeaderSize + len(points)*PointSize)

	enc.PutInt32(format.WireVersion)
	putSampleRate(enc, rate)
	enc.PutUint32(uint32(len(points))) //nolint:gosec
	for _, p := range points {
		enc.PutUint64(p.Timestamp)
		enc.PutFloat32(p.Value)
	}

	return enc.Finish()
}

// DecodeTimeSeriesBatch decodes a download body: a bare sequence of
// (timestamp, value) records running to the end of data. A trailing partial
// record is an error.
func DecodeTimeSeriesBatch(data []byte) ([]series.Point, error) {
	if rem := len(data) % PointSize; rem != 0 {
		return nil, errs.Formatf("time-series payload of %d bytes ends with a truncated %d-byte record", len(data), rem)
	}

	dec := xdr.NewDecoder(data)
	points := make([]series.Point, 0, len(data)/PointSize)
	for !dec.Done() {
		ts, err := dec.Uint64()
		if err != nil {
			return nil, err
		}
		v, err := dec.Float32()
		if err != nil {
			return nil, err
		}
		points = append(points, series.Point{Timestamp: ts, Value: v})
	}

	return points, nil
}

func putSampleRate(enc *xdr.Encoder, rate series.SampleRate) {
	enc.PutEnum(int32(rate.Type)) //nolint:gosec
	enc.PutUint32(rate.Rate)
}

func readSampleRate(dec *xdr.Decoder) (series.SampleRate, error) {
	start := dec.Offset()
	typ, err := dec.Enum()
	if err != nil {
		return series.SampleRate{}, err
	}
	rate, err := dec.Uint32()
	if err != nil {
		return series.SampleRate{}, err
	}

	sr := series.SampleRate{Type: format.SampleRateType(typ), Rate: rate} //nolint:gosec
	if !sr.Type.Valid() {
		return series.SampleRate{}, errs.Formatf("unknown sample rate type %d at offset %d", typ, start)
	}

	return sr, nil
}

// DecodeTimeSeriesUpload decodes a time-series upload body. It is the inverse
// of EncodeTimeSeriesBatch and is used to inspect recorded uploads.
func DecodeTimeSeriesUpload(data []byte) (series.SampleRate, []series.Point, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "time-series batch"); err != nil {
		return series.SampleRate{}, nil, err
	}

	rate, err := readSampleRate(dec)
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	count, err := dec.Uint32()
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	if need := uint64(count) * PointSize; uint64(dec.Remaining()) != need { //nolint:gosec
		return series.SampleRate{}, nil, errs.Formatf("time-series batch declares %d points but carries %d bytes", count, dec.Remaining())
	}

	points, err := DecodeTimeSeriesBatch(data[dec.Offset():])
	if err != nil {
		return series.SampleRate{}, nil, err
	}

	return rate, points, nil
}
