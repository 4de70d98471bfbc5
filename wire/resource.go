package wire

import (
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

// EncodeCreateResource encodes a version followed by each field as a string.
func EncodeCreateResource(version int32, fields ...string) []byte {
	enc := xdr.NewEncoder()
	enc.PutInt32(version)
	for _, f := range fields {
		enc.PutString(f)
	}

	return enc.Finish()
}

// EncodeCreateSensor encodes the body of an add-sensor call.
func EncodeCreateSensor(sensorType, label, description string) []byte {
	return EncodeCreateResource(format.WireVersion, sensorType, label, description)
}

// EncodeCreateChannel encodes the body of an add-channel call.
func EncodeCreateChannel(label, description string) []byte {
	return EncodeCreateResource(format.WireVersion, label, description)
}

// DecodeSensorInfo decodes the attributes returned by a sensor GET.
// The sensor name is not part of the payload.
func DecodeSensorInfo(data []byte) (series.SensorInfo, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "sensor info"); err != nil {
		return series.SensorInfo{}, err
	}

	var (
		info series.SensorInfo
		err  error
	)
	if info.Type, err = dec.String(MaxStringLen); err != nil {
		return series.SensorInfo{}, err
	}
	if info.Label, err = dec.String(MaxStringLen); err != nil {
		return series.SensorInfo{}, err
	}
	if info.Description, err = dec.String(MaxStringLen); err != nil {
		return series.SensorInfo{}, err
	}

	return info, nil
}

// DecodeChannelInfo decodes the attributes returned by a channel attributes GET.
func DecodeChannelInfo(data []byte) (series.ChannelInfo, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "channel info"); err != nil {
		return series.ChannelInfo{}, err
	}

	var (
		info series.ChannelInfo
		err  error
	)
	if info.Label, err = dec.String(MaxStringLen); err != nil {
		return series.ChannelInfo{}, err
	}
	if info.Description, err = dec.String(MaxStringLen); err != nil {
		return series.ChannelInfo{}, err
	}

	return info, nil
}

// Stream type names used in sensor listings.
const (
	streamTypeTimeSeries = "TS_V1"
	streamTypeHistogram  = "HISTOGRAM_V1"
)

// DecodeSensorListing decodes the body of a device's sensor listing.
// Stream descriptions are skipped; only their kinds are kept.
func DecodeSensorListing(data []byte) ([]series.SensorInfo, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "sensor listing"); err != nil {
		return nil, err
	}

	count, err := readCount(dec, "sensor", MaxSensors)
	if err != nil {
		return nil, err
	}

	sensors := make([]series.SensorInfo, 0, count)
	for range count {
		var s series.SensorInfo
		if s.Name, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if s.Type, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if s.Label, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if s.Description, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}

		if s.Channels, err = decodeChannelListing(dec); err != nil {
			return nil, err
		}
		sensors = append(sensors, s)
	}

	return sensors, nil
}

func decodeChannelListing(dec *xdr.Decoder) ([]series.ChannelInfo, error) {
	count, err := readCount(dec, "channel", MaxChannels)
	if err != nil {
		return nil, err
	}

	channels := make([]series.ChannelInfo, 0, count)
	for range count {
		var c series.ChannelInfo
		if c.Name, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if c.Label, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if c.Description, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}

		streams, err := readCount(dec, "stream", MaxStreams)
		if err != nil {
			return nil, err
		}
		for range streams {
			streamType, err := dec.String(MaxStringLen)
			if err != nil {
				return nil, err
			}
			if err := dec.SkipOpaque(MaxStreamBlock); err != nil {
				return nil, err
			}

			switch streamType {
			case streamTypeTimeSeries:
				c.Streams = append(c.Streams, format.StreamTimeSeries)
			case streamTypeHistogram:
				c.Streams = append(c.Streams, format.StreamHistogram)
			}
		}
		channels = append(channels, c)
	}

	return channels, nil
}

func readVersion(dec *xdr.Decoder, what string) error {
	version, err := dec.Int32()
	if err != nil {
		return err
	}
	if version != format.WireVersion {
		return errs.Formatf("%s: unsupported structure version %d", what, version)
	}

	return nil
}

func readCount(dec *xdr.Decoder, what string, limit uint32) (uint32, error) {
	n, err := dec.Uint32()
	if err != nil {
		return 0, err
	}
	if n > limit {
		return 0, errs.Formatf("%s count %d exceeds limit %d", what, n, limit)
	}

	return n, nil
}
