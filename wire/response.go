package wire

import (
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

// The encoders below produce service-side response bodies. They are the
// inverses of the Decode functions and back the fake servers in tests and
// local tooling.

// EncodeAuthResponse encodes an authenticate response.
func EncodeAuthResponse(resp AuthResponse) []byte {
	enc := xdr.NewEncoder()
	enc.PutString(resp.Token)
	enc.PutString(resp.Server)

	return enc.Finish()
}

// EncodeTimeSeriesData encodes a download body: bare (timestamp, value) records.
func EncodeTimeSeriesData(points []series.Point) []byte {
	enc := xdr.NewEncoder()
	enc.Grow(len(points) * PointSize)
	for _, p := range points {
		enc.PutUint64(p.Timestamp)
		enc.PutFloat32(p.Value)
	}

	return enc.Finish()
}

// EncodeHistogram encodes a latest-histogram response.
func EncodeHistogram(h series.Histogram) []byte {
	enc := xdr.NewEncoder()
	enc.PutInt32(format.WireVersion)
	enc.PutUint64(h.Timestamp)
	enc.PutFloat32(h.BinStart)
	enc.PutFloat32(h.BinSize)
	enc.PutUint32(uint32(len(h.Bins))) //nolint:gosec
	for _, b := range h.Bins {
		enc.PutUint32(b)
	}

	return enc.Finish()
}

// EncodePartitionListing encodes a partition listing. Every partition must be
// of kind.
func EncodePartitionListing(kind format.StreamKind, partitions []series.Partition) []byte {
	enc := xdr.NewEncoder()
	enc.PutInt32(format.WireVersion)
	enc.PutUint32(uint32(len(partitions))) //nolint:gosec
	for _, p := range partitions {
		enc.PutUint64(p.Start)
		enc.PutUint64(p.End)
		enc.PutInt32(0)
		enc.PutInt32(0)
		putSampleRate(enc, p.SampleRate)
		if kind == format.StreamHistogram {
			enc.PutUint32(p.Shape.NumBins)
			enc.PutFloat32(p.Shape.BinStart)
			enc.PutFloat32(p.Shape.BinSize)
		} else {
			putUnits(enc, p.Units)
		}
	}

	return enc.Finish()
}

// EncodeStreamInfo encodes a stream summary.
func EncodeStreamInfo(info series.StreamInfo) []byte {
	enc := xdr.NewEncoder()
	enc.PutInt32(format.WireVersion)
	enc.PutUint64(info.Start)
	enc.PutUint64(info.End)
	if info.Kind == format.StreamTimeSeries {
		putUnits(enc, info.Units)
	}

	return enc.Finish()
}

// EncodeSensorListing encodes a device's sensor listing.
func EncodeSensorListing(sensors []series.SensorInfo) []byte {
	enc := xdr.NewEncoder()
	enc.PutInt32(format.WireVersion)
	enc.PutUint32(uint32(len(sensors))) //nolint:gosec
	for _, s := range sensors {
		enc.PutString(s.Name)
		enc.PutString(s.Type)
		enc.PutString(s.Label)
		enc.PutString(s.Description)
		enc.PutUint32(uint32(len(s.Channels))) //nolint:gosec
		for _, c := range s.Channels {
			enc.PutString(c.Name)
			enc.PutString(c.Label)
			enc.PutString(c.Description)
			enc.PutUint32(uint32(len(c.Streams))) //nolint:gosec
			for _, k := range c.Streams {
				if k == format.StreamHistogram {
					enc.PutString(streamTypeHistogram)
				} else {
					enc.PutString(streamTypeTimeSeries)
				}
				enc.PutOpaque(nil)
			}
		}
	}

	return enc.Finish()
}

func putUnits(enc *xdr.Encoder, units []series.Unit) {
	enc.PutUint32(uint32(len(units))) //nolint:gosec
	for _, u := range units {
		enc.PutString(u.StoredUnit)
		enc.PutString(u.PreferredUnit)
		enc.PutUint64(u.Timestamp)
		enc.PutFloat32(u.Slope)
		enc.PutFloat32(u.Offset)
	}
}
