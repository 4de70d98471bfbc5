package wire

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

func TestAuthQuery(t *testing.T) {
	q := AuthQuery("secret", "", "")
	require.Equal(t, "key=secret&version=1", q.Encode())

	q = AuthQuery("secret", "linux 6.1", "10.0.0.2")
	require.Equal(t, "linux 6.1", q.Get("os_version"))
	require.Equal(t, "10.0.0.2", q.Get("local_ip"))
}

func TestDecodeAuthResponse(t *testing.T) {
	enc := xdr.NewEncoder()
	enc.PutString("tok123")
	enc.PutString("dsx.sensorcloud.example")
	enc.PutString("ignored third field")

	resp, err := DecodeAuthResponse(enc.Finish())
	require.NoError(t, err)
	require.Equal(t, AuthResponse{Token: "tok123", Server: "dsx.sensorcloud.example"}, resp)

	round, err := DecodeAuthResponse(EncodeAuthResponse(resp))
	require.NoError(t, err)
	require.Equal(t, resp, round)
}

func TestDecodeAuthResponse_Malformed(t *testing.T) {
	enc := xdr.NewEncoder()
	enc.PutString("only-token")

	_, err := DecodeAuthResponse(enc.Finish())
	require.ErrorIs(t, err, errs.ErrFormat)

	_, err = DecodeAuthResponse(nil)
	require.ErrorIs(t, err, errs.ErrFormat)

	_, err = DecodeAuthResponse(EncodeAuthResponse(AuthResponse{Token: "", Server: "host"}))
	require.ErrorIs(t, err, errs.ErrFormat)
}

func TestEncodeCreateSensor(t *testing.T) {
	expected := []byte{
		0, 0, 0, 1,
		0, 0, 0, 3, 'i', 'm', 'u', 0,
		0, 0, 0, 0,
		0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o', 0, 0, 0,
	}
	require.Equal(t, expected, EncodeCreateSensor("imu", "", "hello"))
}

func TestEncodeCreateChannel(t *testing.T) {
	expected := []byte{
		0, 0, 0, 1,
		0, 0, 0, 4, 't', 'e', 'm', 'p',
		0, 0, 0, 0,
	}
	require.Equal(t, expected, EncodeCreateChannel("temp", ""))
}

func TestEncodeTimeSeriesBatch_Layout(t *testing.T) {
	data := EncodeTimeSeriesBatch(series.Hertz(10), []series.Point{{Timestamp: 12345, Value: 1}})

	expected := []byte{
		0, 0, 0, 1, // version
		0, 0, 0, 1, // hertz
		0, 0, 0, 10, // rate
		0, 0, 0, 1, // count
		0, 0, 0, 0, 0, 0, 0x30, 0x39, // 12345
		0x3f, 0x80, 0, 0, // 1.0
	}
	require.Equal(t, expected, data)
}

func TestTimeSeriesRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		points []series.Point
	}{
		{"empty", nil},
		{"single", []series.Point{{Timestamp: 1, Value: 0.5}}},
		{"extremes", []series.Point{
			{Timestamp: 0, Value: -math.MaxFloat32},
			{Timestamp: math.MaxUint64, Value: math.MaxFloat32},
			{Timestamp: 1 << 40, Value: float32(math.Inf(1))},
			{Timestamp: 7, Value: math.SmallestNonzeroFloat32},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := EncodeTimeSeriesBatch(series.Seconds(5), tt.points)

			rate, points, err := DecodeTimeSeriesUpload(data)
			require.NoError(t, err)
			require.Equal(t, series.Seconds(5), rate)
			require.Len(t, points, len(tt.points))
			for i := range tt.points {
				require.Equal(t, tt.points[i], points[i])
			}

			body, err := DecodeTimeSeriesBatch(EncodeTimeSeriesData(tt.points))
			require.NoError(t, err)
			require.Len(t, body, len(tt.points))
		})
	}
}

func TestDecodeTimeSeriesBatch_Truncated(t *testing.T) {
	data := EncodeTimeSeriesData([]series.Point{{Timestamp: 1, Value: 1}, {Timestamp: 2, Value: 2}})

	_, err := DecodeTimeSeriesBatch(data[:len(data)-1])
	require.ErrorIs(t, err, errs.ErrFormat)

	_, err = DecodeTimeSeriesBatch(data[:5])
	require.ErrorIs(t, err, errs.ErrFormat)
}

func TestDecodeTimeSeriesUpload_CountMismatch(t *testing.T) {
	data := EncodeTimeSeriesBatch(series.Hertz(1), []series.Point{{Timestamp: 1, Value: 1}})

	_, _, err := DecodeTimeSeriesUpload(data[:len(data)-PointSize])
	require.ErrorIs(t, err, errs.ErrFormat)
}

func TestEncodeHistogramBatch(t *testing.T) {
	hists := []series.Histogram{
		series.NewHistogram(100, 0, 1, []uint32{1, 2}),
		series.NewHistogram(200, 0, 1, []uint32{3, 4}),
	}

	data, err := EncodeHistogramBatch(series.Hertz(10), 0, 1, 2, hists)
	require.NoError(t, err)
	require.Len(t, data, histogramHeaderSize+2*HistogramRecordSize(2))

	rate, decoded, err := DecodeHistogramBatch(data)
	require.NoError(t, err)
	require.Equal(t, series.Hertz(10), rate)
	require.Len(t, decoded, 2)
	for i := range hists {
		require.True(t, hists[i].Equal(decoded[i]))
	}
}

func TestEncodeHistogramBatch_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		hist series.Histogram
	}{
		{"bin start", series.NewHistogram(2, 1, 1, []uint32{1, 2})},
		{"bin size", series.NewHistogram(2, 0, 2, []uint32{1, 2})},
		{"bin count", series.NewHistogram(2, 0, 1, []uint32{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hists := []series.Histogram{series.NewHistogram(1, 0, 1, []uint32{1, 2}), tt.hist}

			data, err := EncodeHistogramBatch(series.Hertz(1), 0, 1, 2, hists)
			require.ErrorIs(t, err, errs.ErrValidation)
			require.Nil(t, data)
		})
	}
}

func TestDecodeHistogram(t *testing.T) {
	h := series.NewHistogram(999, -1.5, 0.5, []uint32{0, 5, 10})

	decoded, err := DecodeHistogram(EncodeHistogram(h))
	require.NoError(t, err)
	require.True(t, h.Equal(decoded))

	data := EncodeHistogram(h)
	_, err = DecodeHistogram(data[:len(data)-4])
	require.ErrorIs(t, err, errs.ErrFormat)
}

func TestDecodePartitionListing_TimeSeries(t *testing.T) {
	partitions := []series.Partition{
		{Kind: format.StreamTimeSeries, Start: 10, End: 20, SampleRate: series.Hertz(10)},
		{
			Kind: format.StreamTimeSeries, Start: 5, End: 500, SampleRate: series.Seconds(1),
			Units: []series.Unit{{StoredUnit: "V", PreferredUnit: "mV", Timestamp: 3, Slope: 1000, Offset: 0}},
		},
	}

	listing, err := DecodePartitionListing(format.StreamTimeSeries, EncodePartitionListing(format.StreamTimeSeries, partitions))
	require.NoError(t, err)
	require.Len(t, listing, 2)

	p := listing["10 hertz"]
	require.Equal(t, uint64(10), p.Start)
	require.Equal(t, uint64(20), p.End)
	require.Equal(t, "10 hertz", p.Descriptor)
	require.Empty(t, p.Units)

	p = listing["1 seconds"]
	require.Equal(t, uint64(500), p.End)
	require.Equal(t, partitions[1].Units, p.Units)
}

func TestDecodePartitionListing_Histogram(t *testing.T) {
	shape := series.HistogramShape{BinStart: 0, BinSize: 1, NumBins: 4}
	partitions := []series.Partition{
		{Kind: format.StreamHistogram, Start: 1, End: 2, SampleRate: series.Hertz(1), Shape: shape},
	}

	listing, err := DecodePartitionListing(format.StreamHistogram, EncodePartitionListing(format.StreamHistogram, partitions))
	require.NoError(t, err)

	desc := series.HistogramDescriptor(series.Hertz(1), shape)
	require.Contains(t, listing, desc)
	require.Equal(t, shape, listing[desc].Shape)
	require.Equal(t, format.StreamHistogram, listing[desc].Kind)
}

func TestDecodePartitionListing_Malformed(t *testing.T) {
	t.Run("unit count out of range", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.PutInt32(1)
		enc.PutUint32(1)
		enc.PutUint64(1)
		enc.PutUint64(2)
		enc.PutInt32(0)
		enc.PutInt32(0)
		enc.PutEnum(1)
		enc.PutUint32(10)
		enc.PutUint32(101)

		_, err := DecodePartitionListing(format.StreamTimeSeries, enc.Finish())
		require.ErrorIs(t, err, errs.ErrFormat)
	})

	t.Run("unsupported version", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.PutInt32(2)
		enc.PutUint32(0)

		_, err := DecodePartitionListing(format.StreamTimeSeries, enc.Finish())
		require.ErrorIs(t, err, errs.ErrFormat)
	})

	t.Run("truncated entry", func(t *testing.T) {
		data := EncodePartitionListing(format.StreamTimeSeries, []series.Partition{{SampleRate: series.Hertz(1)}})

		_, err := DecodePartitionListing(format.StreamTimeSeries, data[:len(data)-4])
		require.ErrorIs(t, err, errs.ErrFormat)
	})

	t.Run("entry count above bound", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.PutInt32(1)
		enc.PutUint32(MaxPartitions + 1)

		_, err := DecodePartitionListing(format.StreamHistogram, enc.Finish())
		require.ErrorIs(t, err, errs.ErrFormat)
	})

	t.Run("unknown rate type", func(t *testing.T) {
		enc := xdr.NewEncoder()
		enc.PutInt32(1)
		enc.PutUint32(1)
		enc.PutUint64(1)
		enc.PutUint64(2)
		enc.PutInt32(0)
		enc.PutInt32(0)
		enc.PutEnum(7)
		enc.PutUint32(10)
		enc.PutUint32(0)

		_, err := DecodePartitionListing(format.StreamTimeSeries, enc.Finish())
		require.ErrorIs(t, err, errs.ErrFormat)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := DecodePartitionListing(format.StreamKind(0), nil)
		require.ErrorIs(t, err, errs.ErrValidation)
	})
}

func TestDecodeStreamInfo(t *testing.T) {
	info := series.StreamInfo{
		Kind:  format.StreamTimeSeries,
		Start: 1,
		End:   99,
		Units: []series.Unit{{StoredUnit: "C", PreferredUnit: "F", Timestamp: 1, Slope: 1.8, Offset: 32}},
	}

	decoded, err := DecodeStreamInfo(format.StreamTimeSeries, EncodeStreamInfo(info))
	require.NoError(t, err)
	require.Equal(t, info, decoded)

	hist := series.StreamInfo{Kind: format.StreamHistogram, Start: 4, End: 8}
	decoded, err = DecodeStreamInfo(format.StreamHistogram, EncodeStreamInfo(hist))
	require.NoError(t, err)
	require.Equal(t, hist, decoded)
}

func TestDecodeSensorListing(t *testing.T) {
	sensors := []series.SensorInfo{
		{
			Name: "imu", Type: "accel", Label: "IMU", Description: "front",
			Channels: []series.ChannelInfo{
				{Name: "x", Label: "X", Description: "x axis", Streams: []format.StreamKind{format.StreamTimeSeries}},
				{Name: "spectrum", Streams: []format.StreamKind{format.StreamHistogram}},
			},
		},
		{Name: "empty"},
	}

	decoded, err := DecodeSensorListing(EncodeSensorListing(sensors))
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.Equal(t, sensors[0], decoded[0])
	require.Equal(t, "empty", decoded[1].Name)
	require.Empty(t, decoded[1].Channels)
}

func TestDecodeSensorListing_StringBound(t *testing.T) {
	enc := xdr.NewEncoder()
	enc.PutInt32(1)
	enc.PutUint32(1)
	enc.PutOpaque(make([]byte, MaxStringLen+1))

	_, err := DecodeSensorListing(enc.Finish())
	require.ErrorIs(t, err, errs.ErrFormat)
}

func TestDecodeSensorAndChannelInfo(t *testing.T) {
	info, err := DecodeSensorInfo(EncodeCreateSensor("accel", "IMU", "front"))
	require.NoError(t, err)
	require.Equal(t, series.SensorInfo{Type: "accel", Label: "IMU", Description: "front"}, info)

	ch, err := DecodeChannelInfo(EncodeCreateChannel("X", "x axis"))
	require.NoError(t, err)
	require.Equal(t, series.ChannelInfo{Label: "X", Description: "x axis"}, ch)

	_, err = DecodeChannelInfo(EncodeCreateResource(3, "X", "x axis"))
	require.ErrorIs(t, err, errs.ErrFormat)
}
