package wire

import (
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/xdr"
)

// EncodeHistogramBatch encodes an upload of histograms sharing one shape.
//
// Every histogram must match (binStart, binSize, numBins) exactly; the first
// mismatch fails with errs.ErrValidation and nothing is encoded.
func EncodeHistogramBatch(rate series.SampleRate, binStart, binSize float32, numBins uint32, hists []series.Histogram) ([]byte, error) {
	want := series.HistogramShape{BinStart: binStart, BinSize: binSize, NumBins: numBins}
	if err := ValidateHistogramShape(want, hists); err != nil {
		return nil, err
	}

	enc := xdr.NewEncoder()
	enc.Grow(histogramHeaderSize + len(hists)*HistogramRecordSize(numBins))

	enc.PutInt32(format.WireVersion)
	putSampleRate(enc, rate)
	enc.PutFloat32(binStart)
	enc.PutFloat32(binSize)
	enc.PutUint32(numBins)
	enc.PutUint32(uint32(len(hists))) //nolint:gosec
	for _, h := range hists {
		enc.PutUint64(h.Timestamp)
		for _, b := range h.Bins {
			enc.PutUint32(b)
		}
	}

	return enc.Finish(), nil
}

// ValidateHistogramShape reports the first histogram whose shape differs from want.
func ValidateHistogramShape(want series.HistogramShape, hists []series.Histogram) error {
	for i, h := range hists {
		if got := h.Shape(); got != want {
			return errs.Validationf("histogram %d has shape (%s), batch requires (%s)", i, got, want)
		}
	}

	return nil
}

// DecodeHistogram decodes the body of the latest-histogram endpoint.
func DecodeHistogram(data []byte) (series.Histogram, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "histogram"); err != nil {
		return series.Histogram{}, err
	}

	ts, err := dec.Uint64()
	if err != nil {
		return series.Histogram{}, err
	}
	binStart, err := dec.Float32()
	if err != nil {
		return series.Histogram{}, err
	}
	binSize, err := dec.Float32()
	if err != nil {
		return series.Histogram{}, err
	}
	numBins, err := readCount(dec, "bin", MaxBins)
	if err != nil {
		return series.Histogram{}, err
	}
	if need := 4 * int(numBins); dec.Remaining() < need {
		return series.Histogram{}, errs.Formatf("histogram declares %d bins but only %d bytes remain", numBins, dec.Remaining())
	}

	bins := make([]uint32, numBins)
	for i := range bins {
		if bins[i], err = dec.Uint32(); err != nil {
			return series.Histogram{}, err
		}
	}

	return series.Histogram{Timestamp: ts, BinStart: binStart, BinSize: binSize, Bins: bins}, nil
}

// DecodeHistogramBatch decodes a histogram upload body. It is the inverse of
// EncodeHistogramBatch and is used to inspect recorded uploads.
func DecodeHistogramBatch(data []byte) (series.SampleRate, []series.Histogram, error) {
	dec := xdr.NewDecoder(data)
	if err := readVersion(dec, "histogram batch"); err != nil {
		return series.SampleRate{}, nil, err
	}

	rate, err := readSampleRate(dec)
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	binStart, err := dec.Float32()
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	binSize, err := dec.Float32()
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	numBins, err := readCount(dec, "bin", MaxBins)
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	count, err := dec.Uint32()
	if err != nil {
		return series.SampleRate{}, nil, err
	}
	if need := uint64(count) * uint64(HistogramRecordSize(numBins)); uint64(dec.Remaining()) != need { //nolint:gosec
		return series.SampleRate{}, nil, errs.Formatf("histogram batch declares %d records of %d bins but carries %d bytes", count, numBins, dec.Remaining())
	}

	hists := make([]series.Histogram, 0, count)
	for range count {
		ts, err := dec.Uint64()
		if err != nil {
			return series.SampleRate{}, nil, err
		}
		bins := make([]uint32, numBins)
		for i := range bins {
			if bins[i], err = dec.Uint32(); err != nil {
				return series.SampleRate{}, nil, err
			}
		}
		hists = append(hists, series.Histogram{Timestamp: ts, BinStart: binStart, BinSize: binSize, Bins: bins})
	}

	return rate, hists, nil
}
