package series

import (
	"github.com/sensorcloud-go/sensorcloud/format"
)

// Unit describes a unit conversion attached to a time-series partition.
type Unit struct {
	StoredUnit    string
	PreferredUnit string
	// Timestamp is when the conversion takes effect, in nanoseconds since the Unix epoch.
	Timestamp uint64
	Slope     float32
	Offset    float32
}

// Partition is a contiguous sub-stream of a channel sharing one descriptor.
type Partition struct {
	Kind       format.StreamKind
	Descriptor string
	// Start and End are the first and last stored timestamps, inclusive.
	Start      uint64
	End        uint64
	SampleRate SampleRate
	// Shape is only set for histogram partitions.
	Shape HistogramShape
	// Units is only set for time-series partitions.
	Units []Unit
}

// StreamInfo summarizes one stream of a channel.
type StreamInfo struct {
	Kind  format.StreamKind
	Start uint64
	End   uint64
	Units []Unit
}

// Filter selects partitions. Zero fields match anything.
type Filter struct {
	// Kind restricts the stream kind; 0 matches both.
	Kind       format.StreamKind
	SampleRate *SampleRate
	// Shape only applies to histogram partitions.
	Shape *HistogramShape
}

// Match reports whether p is selected by f.
func (f Filter) Match(p Partition) bool {
	if f.Kind != 0 && f.Kind != p.Kind {
		return false
	}
	if f.SampleRate != nil && *f.SampleRate != p.SampleRate {
		return false
	}
	if f.Shape != nil {
		if p.Kind != format.StreamHistogram {
			return false
		}
		// Compare through the descriptor rendering so values that print the
		// same select the same partition.
		if HistogramDescriptor(p.SampleRate, *f.Shape) != HistogramDescriptor(p.SampleRate, p.Shape) {
			return false
		}
	}

	return true
}

// SensorInfo describes a sensor and its channels.
type SensorInfo struct {
	Name        string
	Type        string
	Label       string
	Description string
	Channels    []ChannelInfo
}

// ChannelInfo describes a channel.
type ChannelInfo struct {
	Name        string
	Label       string
	Description string
	// Streams lists the stream kinds the channel holds data for.
	Streams []format.StreamKind
}
