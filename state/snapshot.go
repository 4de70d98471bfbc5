package state

import (
	"maps"

	"github.com/sensorcloud-go/sensorcloud/format"
)

// Snapshot is the exported state of one device. Its JSON form matches the
// cache file layout of the other SensorCloud SDKs:
//
//	{"server": ..., "token": ..., "sensors": {"<name>": {"channels": {"<name>": {
//	    "timeseries_partitions": {"<descriptor>": {"start": ..., "end": ...}},
//	    "histogram_partitions": {...}}}}}}
type Snapshot struct {
	DeviceID string                    `json:"device_id,omitempty" cbor:"1,keyasint,omitempty"`
	Server   string                    `json:"server,omitempty" cbor:"2,keyasint,omitempty"`
	Token    string                    `json:"token,omitempty" cbor:"3,keyasint,omitempty"`
	Sensors  map[string]SensorSnapshot `json:"sensors,omitempty" cbor:"4,keyasint,omitempty"`
}

// SensorSnapshot holds the channels of one sensor.
type SensorSnapshot struct {
	Channels map[string]ChannelSnapshot `json:"channels,omitempty" cbor:"1,keyasint,omitempty"`
}

// ChannelSnapshot holds the partitions of one channel.
type ChannelSnapshot struct {
	TimeSeriesPartitions map[string]PartitionRange `json:"timeseries_partitions,omitempty" cbor:"1,keyasint,omitempty"`
	HistogramPartitions  map[string]PartitionRange `json:"histogram_partitions,omitempty" cbor:"2,keyasint,omitempty"`
	// TimeSeriesComplete marks TimeSeriesPartitions as a full server listing.
	TimeSeriesComplete bool `json:"timeseries_complete,omitempty" cbor:"3,keyasint,omitempty"`
	// HistogramComplete marks HistogramPartitions as a full server listing.
	HistogramComplete bool `json:"histogram_complete,omitempty" cbor:"4,keyasint,omitempty"`
}

// Snapshot exports the state of deviceID.
func (s *MemoryStore) Snapshot(deviceID string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{DeviceID: deviceID}
	if c, ok := s.credentials[deviceID]; ok {
		snap.Server = c.Server
		snap.Token = c.Token
	}

	for key, cs := range s.channels {
		if key.DeviceID != deviceID {
			continue
		}
		if snap.Sensors == nil {
			snap.Sensors = make(map[string]SensorSnapshot)
		}
		sensor, ok := snap.Sensors[key.Sensor]
		if !ok {
			sensor = SensorSnapshot{Channels: make(map[string]ChannelSnapshot)}
			snap.Sensors[key.Sensor] = sensor
		}
		sensor.Channels[key.Channel] = ChannelSnapshot{
			TimeSeriesPartitions: maps.Clone(cs.timeSeries.parts),
			HistogramPartitions:  maps.Clone(cs.histogram.parts),
			TimeSeriesComplete:   cs.timeSeries.complete,
			HistogramComplete:    cs.histogram.complete,
		}
	}

	return snap
}

// Restore replaces the state of snap.DeviceID with snap.
func (s *MemoryStore) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.channels {
		if key.DeviceID == snap.DeviceID {
			delete(s.channels, key)
		}
	}
	delete(s.credentials, snap.DeviceID)

	if snap.Token != "" || snap.Server != "" {
		s.credentials[snap.DeviceID] = Credentials{
			DeviceID: snap.DeviceID,
			Server:   snap.Server,
			Token:    snap.Token,
		}
	}

	for sensorName, sensor := range snap.Sensors {
		for channelName, ch := range sensor.Channels {
			cs := s.channel(ChannelKey{DeviceID: snap.DeviceID, Sensor: sensorName, Channel: channelName})
			restoreKind(cs.kind(format.StreamTimeSeries), ch.TimeSeriesPartitions, ch.TimeSeriesComplete)
			restoreKind(cs.kind(format.StreamHistogram), ch.HistogramPartitions, ch.HistogramComplete)
		}
	}
}

func restoreKind(kp *kindPartitions, parts map[string]PartitionRange, complete bool) {
	kp.parts = maps.Clone(parts)
	if kp.parts == nil {
		kp.parts = make(map[string]PartitionRange)
	}
	kp.complete = complete
}
