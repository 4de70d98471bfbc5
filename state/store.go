package state

import (
	"github.com/sensorcloud-go/sensorcloud/format"
)

// Credentials is the persisted session of one device.
type Credentials struct {
	DeviceID string
	// Server is the API server URL including scheme.
	Server string
	Token  string
}

// ChannelKey identifies a channel across devices.
type ChannelKey struct {
	DeviceID string
	Sensor   string
	Channel  string
}

// PartitionKey identifies one partition of a channel.
type PartitionKey struct {
	ChannelKey
	Kind       format.StreamKind
	Descriptor string
}

// PartitionRange is the first and last timestamp stored in a partition.
type PartitionRange struct {
	Start uint64 `json:"start" cbor:"1,keyasint"`
	End   uint64 `json:"end" cbor:"2,keyasint"`
	// StartUnknown marks Start as an upper bound only. Cache files that
	// record nothing but a last timestamp import this way.
	StartUnknown bool `json:"start_unknown,omitempty" cbor:"3,keyasint,omitempty"`
}

// Extend returns r widened to include [start, end].
func (r PartitionRange) Extend(start, end uint64) PartitionRange {
	if r == (PartitionRange{}) {
		return PartitionRange{Start: start, End: end}
	}
	if start < r.Start {
		r.Start = start
	}
	if end > r.End {
		r.End = end
	}

	return r
}

// Store persists credentials and partition ranges.
//
// Partitions reports complete=true only after ReplacePartitions recorded a
// full listing for that channel and kind; SetPartition alone never marks a
// set complete.
type Store interface {
	// Credentials returns the stored session of deviceID.
	Credentials(deviceID string) (Credentials, bool, error)
	// SetCredentials replaces the stored session of c.DeviceID.
	SetCredentials(c Credentials) error

	// Partitions returns a copy of the known partitions of one channel and kind.
	Partitions(ch ChannelKey, kind format.StreamKind) (parts map[string]PartitionRange, complete bool, err error)
	// ReplacePartitions records a full listing, replacing what was known.
	ReplacePartitions(ch ChannelKey, kind format.StreamKind, parts map[string]PartitionRange) error
	// SetPartition records the range of a single partition.
	SetPartition(key PartitionKey, r PartitionRange) error
	// ForgetChannel drops everything known about a channel.
	ForgetChannel(ch ChannelKey) error
	// ForgetSensor drops everything known about every channel of a sensor.
	ForgetSensor(deviceID, sensor string) error
}
