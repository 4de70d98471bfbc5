package series

import (
	"fmt"
	"slices"
	"time"
)

// HistogramShape is the bin layout shared by every histogram in a partition.
type HistogramShape struct {
	BinStart float32
	BinSize  float32
	NumBins  uint32
}

func (s HistogramShape) String() string {
	return fmt.Sprintf("start=%g size=%g bins=%d", s.BinStart, s.BinSize, s.NumBins)
}

// Histogram is a single histogram sample.
type Histogram struct {
	// Timestamp is nanoseconds since the Unix epoch.
	Timestamp uint64
	BinStart  float32
	BinSize   float32
	// Bins holds the count of each bin. Its length is fixed at construction.
	Bins []uint32
}

// NewHistogram creates a histogram stamped at ts. The bins are copied.
func NewHistogram(ts uint64, binStart, binSize float32, bins []uint32) Histogram {
	return Histogram{
		Timestamp: ts,
		BinStart:  binStart,
		BinSize:   binSize,
		Bins:      slices.Clone(bins),
	}
}

// Shape returns the bin layout of h.
func (h Histogram) Shape() HistogramShape {
	return HistogramShape{
		BinStart: h.BinStart,
		BinSize:  h.BinSize,
		NumBins:  uint32(len(h.Bins)), //nolint:gosec
	}
}

// Time returns the histogram's timestamp in UTC.
func (h Histogram) Time() time.Time {
	return Time(h.Timestamp)
}

// Descriptor returns the partition descriptor of h when stored at rate.
func (h Histogram) Descriptor(rate SampleRate) string {
	return HistogramDescriptor(rate, h.Shape())
}

// Equal reports whether h and other have the same timestamp, shape and bin counts.
func (h Histogram) Equal(other Histogram) bool {
	return h.Timestamp == other.Timestamp &&
		h.BinStart == other.BinStart &&
		h.BinSize == other.BinSize &&
		slices.Equal(h.Bins, other.Bins)
}

func (h Histogram) String() string {
	return fmt.Sprintf("Histogram(%s, %s, %v)", h.Time().Format(time.RFC3339Nano), h.Shape(), h.Bins)
}
