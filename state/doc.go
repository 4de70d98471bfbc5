// Package state holds the client state that outlives a process: the device's
// session credentials and the known start and end of every partition.
//
// Store is the typed key-value interface the client reads and writes.
// MemoryStore is the in-memory implementation; it can export a device's state
// as a Snapshot and restore it again. Marshal and Unmarshal turn a Snapshot
// into a self-checking blob the caller may keep anywhere:
//
//	blob, err := state.Marshal(store.Snapshot(deviceID),
//	    state.WithCompression(format.CompressionZstd))
//	...
//	snap, err := state.Unmarshal(blob)
//	store.Restore(snap)
//
// Blob layout:
//
//	magic "SCST" | version (1) | encoding | compression | payload | xxHash64 (big-endian)
//
// The checksum covers every preceding byte.
package state
