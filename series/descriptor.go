package series

import (
	"math"
	"strconv"
	"strings"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
)

// Descriptor is the parsed form of a partition descriptor.
type Descriptor struct {
	Kind       format.StreamKind
	SampleRate SampleRate
	// Shape is zero for time-series descriptors.
	Shape HistogramShape
}

func (d Descriptor) String() string {
	if d.Kind == format.StreamHistogram {
		return HistogramDescriptor(d.SampleRate, d.Shape)
	}

	return TimeSeriesDescriptor(d.SampleRate)
}

// TimeSeriesDescriptor returns the descriptor of the time-series partition at rate.
func TimeSeriesDescriptor(rate SampleRate) string {
	return rate.String()
}

// HistogramDescriptor returns the descriptor of the histogram partition at rate
// with the given shape. Bin counts do not take part.
func HistogramDescriptor(rate SampleRate, shape HistogramShape) string {
	var sb strings.Builder
	sb.Grow(48)
	sb.WriteString(rate.String())
	sb.WriteByte('_')
	sb.WriteString(formatBinFloat(shape.BinStart))
	sb.WriteByte('_')
	sb.WriteString(formatBinFloat(shape.BinSize))
	sb.WriteByte('_')
	sb.WriteString(strconv.FormatUint(uint64(shape.NumBins), 10))

	return sb.String()
}

// ParseDescriptor parses a descriptor of the given kind.
func ParseDescriptor(kind format.StreamKind, s string) (Descriptor, error) {
	switch kind {
	case format.StreamTimeSeries:
		rate, err := ParseSampleRate(s)
		if err != nil {
			return Descriptor{}, err
		}

		return Descriptor{Kind: kind, SampleRate: rate}, nil

	case format.StreamHistogram:
		parts := strings.Split(s, "_")
		if len(parts) != 4 {
			return Descriptor{}, errs.Formatf("histogram descriptor %q: expected 4 fields, got %d", s, len(parts))
		}

		rate, err := ParseSampleRate(parts[0])
		if err != nil {
			return Descriptor{}, err
		}
		binStart, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
		if err != nil {
			return Descriptor{}, errs.Formatf("histogram descriptor %q: bin start: %v", s, err)
		}
		binSize, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 32)
		if err != nil {
			return Descriptor{}, errs.Formatf("histogram descriptor %q: bin size: %v", s, err)
		}
		numBins, err := strconv.ParseUint(parts[3], 10, 32)
		if err != nil {
			return Descriptor{}, errs.Formatf("histogram descriptor %q: bin count: %v", s, err)
		}

		return Descriptor{
			Kind:       kind,
			SampleRate: rate,
			Shape: HistogramShape{
				BinStart: float32(binStart),
				BinSize:  float32(binSize),
				NumBins:  uint32(numBins),
			},
		}, nil

	default:
		return Descriptor{}, errs.Validationf("unknown stream kind %d", kind)
	}
}

// formatBinFloat renders v like C's "%6e": six fraction digits, a signed
// two-digit minimum exponent and lower-case non-finite values padded to width 6.
func formatBinFloat(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "   nan"
	case math.IsInf(f, 1):
		return "   inf"
	case math.IsInf(f, -1):
		return "  -inf"
	}

	return strconv.FormatFloat(f, 'e', 6, 64)
}
