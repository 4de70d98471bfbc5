// Package wire encodes and decodes the binary payloads of the SensorCloud REST
// API.
//
// Every function is pure: it takes or returns complete byte slices and never
// performs I/O. Encoders build on xdr.Encoder and return freshly allocated
// slices; decoders validate every count and length against fixed bounds and
// return errors wrapping errs.ErrFormat on malformed input.
//
// Time-series upload layout:
//
//	int      version (1)
//	enum     sample rate type (0 = seconds, 1 = hertz)
//	uint     sample rate
//	uint     point count
//	point[]  { unsigned hyper timestamp; float value }
//
// Histogram upload layout:
//
//	int      version (1)
//	enum     sample rate type
//	uint     sample rate
//	float    bin start
//	float    bin size
//	uint     bins per histogram
//	uint     histogram count
//	record[] { unsigned hyper timestamp; unsigned int bins[bins per histogram] }
package wire

// Decoding bounds.
const (
	// MaxStringLen bounds every string field in a response.
	MaxStringLen = 1000
	// MaxUnits bounds the unit list of a time-series partition.
	MaxUnits = 100
	// MaxPartitions bounds the entry count of a partition listing.
	MaxPartitions = 10_000
	// MaxSensors bounds the sensor count of a sensor listing.
	MaxSensors = 10_000
	// MaxChannels bounds the channel count of one sensor in a listing.
	MaxChannels = 10_000
	// MaxStreams bounds the stream count of one channel in a listing.
	MaxStreams = 100
	// MaxStreamBlock bounds the opaque stream description in a listing.
	MaxStreamBlock = 1 << 20
	// MaxBins bounds the bin count of a decoded histogram.
	MaxBins = 1 << 20
)

// Record sizes of the upload payloads.
const (
	// PointSize is the encoded size of one time-series point.
	PointSize = 12
	// timeSeriesHeaderSize covers version, sample rate and count.
	timeSeriesHeaderSize = 16
	// histogramHeaderSize covers version, sample rate, shape and count.
	histogramHeaderSize = 28
)

// HistogramRecordSize returns the encoded size of one histogram with numBins bins.
func HistogramRecordSize(numBins uint32) int {
	return 8 + 4*int(numBins)
}
