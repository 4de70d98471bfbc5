package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleRateTypeString(t *testing.T) {
	require.Equal(t, "hertz", SampleRateHertz.String())
	require.Equal(t, "seconds", SampleRateSeconds.String())
	require.Equal(t, "unknown", SampleRateType(7).String())

	require.True(t, SampleRateHertz.Valid())
	require.True(t, SampleRateSeconds.Valid())
	require.False(t, SampleRateType(2).Valid())
}

func TestStreamKindString(t *testing.T) {
	require.Equal(t, "timeseries", StreamTimeSeries.String())
	require.Equal(t, "histogram", StreamHistogram.String())
	require.Equal(t, "unknown", StreamKind(0).String())
}

func TestCompressionType(t *testing.T) {
	tests := []struct {
		name     string
		want     CompressionType
		encoding string
	}{
		{"none", CompressionNone, ""},
		{"", CompressionNone, ""},
		{"gzip", CompressionGzip, "gzip"},
		{"zstd", CompressionZstd, "zstd"},
		{"s2", CompressionS2, ""},
		{"lz4", CompressionLZ4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCompressionType(tt.name)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.encoding, got.ContentEncoding())
		})
	}

	_, ok := ParseCompressionType("brotli")
	require.False(t, ok)
	require.Equal(t, "Unknown", CompressionType(0xF).String())
}
