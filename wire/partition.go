package wire

import (
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

// DecodePartitionListing decodes the partition listing of one stream kind,
// keyed by descriptor.
//
// Each entry is: unsigned hyper start, unsigned hyper end, two reserved ints,
// the sample rate, then for time-series a unit list (at most MaxUnits) or for
// histograms the bin count, bin start and bin size.
func DecodePartitionListing(kind format.StreamKind, data []byte) (map[string]series.Partition, error) {
	if kind != format.StreamTimeSeries && kind != format.StreamHistogram {
		return nil, errs.Validationf("unknown stream kind %d", kind)
	}

	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "partition listing"); err != nil {
		return nil, err
	}
	count, err := readCount(dec, "partition", MaxPartitions)
	if err != nil {
		return nil, err
	}

	partitions := make(map[string]series.Partition, count)
	for range count {
		p, err := decodePartition(kind, dec)
		if err != nil {
			return nil, err
		}
		partitions[p.Descriptor] = p
	}

	return partitions, nil
}

func decodePartition(kind format.StreamKind, dec *xdr.Decoder) (series.Partition, error) {
	p := series.Partition{Kind: kind}

	var err error
	if p.Start, err = dec.Uint64(); err != nil {
		return p, err
	}
	if p.End, err = dec.Uint64(); err != nil {
		return p, err
	}
	// reserved
	for range 2 {
		if _, err = dec.Int32(); err != nil {
			return p, err
		}
	}
	if p.SampleRate, err = readSampleRate(dec); err != nil {
		return p, err
	}

	switch kind {
	case format.StreamTimeSeries:
		if p.Units, err = decodeUnits(dec); err != nil {
			return p, err
		}
		p.Descriptor = series.TimeSeriesDescriptor(p.SampleRate)

	case format.StreamHistogram:
		if p.Shape.NumBins, err = dec.Uint32(); err != nil {
			return p, err
		}
		if p.Shape.BinStart, err = dec.Float32(); err != nil {
			return p, err
		}
		if p.Shape.BinSize, err = dec.Float32(); err != nil {
			return p, err
		}
		p.Descriptor = series.HistogramDescriptor(p.SampleRate, p.Shape)
	}

	return p, nil
}

// DecodeStreamInfo decodes the summary of one stream: its start and end and,
// for time-series, its units.
func DecodeStreamInfo(kind format.StreamKind, data []byte) (series.StreamInfo, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "stream info"); err != nil {
		return series.StreamInfo{}, err
	}

	info := series.StreamInfo{Kind: kind}
	var err error
	if info.Start, err = dec.Uint64(); err != nil {
		return series.StreamInfo{}, err
	}
	if info.End, err = dec.Uint64(); err != nil {
		return series.StreamInfo{}, err
	}
	if kind == format.StreamTimeSeries {
		if info.Units, err = decodeUnits(dec); err != nil {
			return series.StreamInfo{}, err
		}
	}

	return info, nil
}

func decodeUnits(dec *xdr.Decoder) ([]series.Unit, error) {
	n, err := dec.Uint32()
	if err != nil {
		return nil, err
	}
	if n > MaxUnits {
		return nil, errs.Formatf("unit count %d not in the range [0,%d]", n, MaxUnits)
	}
	if n == 0 {
		return nil, nil
	}

	units := make([]series.Unit, 0, n)
	for range n {
		var u series.Unit
		if u.StoredUnit, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if u.PreferredUnit, err = dec.String(MaxStringLen); err != nil {
			return nil, err
		}
		if u.Timestamp, err = dec.Uint64(); err != nil {
			return nil, err
		}
		if u.Slope, err = dec.Float32(); err != nil {
			return nil, err
		}
		if u.Offset, err = dec.Float32(); err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	return units, nil
}
