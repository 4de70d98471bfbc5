package config

import (
	"fmt"

	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/state"
)

// SnapshotOptions returns the state.Marshal options selected by State.
func (c *Config) SnapshotOptions() []state.MarshalOption {
	encoding, _ := parseEncoding(c.State.Encoding)
	compression, _ := format.ParseCompressionType(c.State.Compression)

	return []state.MarshalOption{
		state.WithEncoding(encoding),
		state.WithCompression(compression),
	}
}

// MarshalState snapshots the configured device's state from store.
func (c *Config) MarshalState(store *state.MemoryStore) ([]byte, error) {
	data, err := state.Marshal(store.Snapshot(c.DeviceID), c.SnapshotOptions()...)
	if err != nil {
		return nil, fmt.Errorf("config: encoding state: %w", err)
	}

	return data, nil
}

// RestoreState loads a blob produced by MarshalState into store. A snapshot
// without a device id is taken to belong to the configured device; one for
// another device is rejected.
func (c *Config) RestoreState(store *state.MemoryStore, data []byte) error {
	snap, err := state.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("config: decoding state: %w", err)
	}

	switch snap.DeviceID {
	case "":
		snap.DeviceID = c.DeviceID
	case c.DeviceID:
	default:
		return fmt.Errorf("config: state belongs to device %q, not %q", snap.DeviceID, c.DeviceID)
	}
	store.Restore(snap)

	return nil
}
