package format

type (
	SampleRateType  uint32
	StreamKind      uint8
	CompressionType uint8
)

const (
	SampleRateSeconds SampleRateType = 0 // SampleRateSeconds means one sample every Rate seconds.
	SampleRateHertz   SampleRateType = 1 // SampleRateHertz means Rate samples per second.

	StreamTimeSeries StreamKind = 0x1 // StreamTimeSeries is a stream of (timestamp, float) points.
	StreamHistogram  StreamKind = 0x2 // StreamHistogram is a stream of fixed-shape histograms.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
	CompressionGzip CompressionType = 0x5 // CompressionGzip represents gzip (RFC 1952) compression.
)

// Wire protocol constants.
const (
	// ContentTypeXDR is the media type of every request and response body.
	ContentTypeXDR = "application/xdr"
	// WireVersion is the structure version written into and expected from payloads.
	WireVersion = 1
	// APIVersion is the value of the "version" query parameter.
	APIVersion = "1"
)

func (t SampleRateType) String() string {
	switch t {
	case SampleRateSeconds:
		return "seconds"
	case SampleRateHertz:
		return "hertz"
	default:
		return "unknown"
	}
}

// Valid reports whether t is a sample rate type the service understands.
func (t SampleRateType) Valid() bool {
	return t == SampleRateSeconds || t == SampleRateHertz
}

func (k StreamKind) String() string {
	switch k {
	case StreamTimeSeries:
		return "timeseries"
	case StreamHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	case CompressionGzip:
		return "Gzip"
	default:
		return "Unknown"
	}
}

// ContentEncoding returns the HTTP Content-Encoding token for c, or "" when c
// has no registered HTTP coding and therefore cannot be used on request bodies.
func (c CompressionType) ContentEncoding() string {
	switch c { //nolint: exhaustive
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return ""
	}
}

// ParseCompressionType maps a configuration name ("none", "gzip", "zstd",
// "s2", "lz4") to a CompressionType.
func ParseCompressionType(name string) (CompressionType, bool) {
	switch name {
	case "", "none":
		return CompressionNone, true
	case "gzip":
		return CompressionGzip, true
	case "zstd":
		return CompressionZstd, true
	case "s2":
		return CompressionS2, true
	case "lz4":
		return CompressionLZ4, true
	default:
		return 0, false
	}
}
