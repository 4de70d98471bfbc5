package state

import (
	"maps"
	"sync"

	"github.com/sensorcloud-go/sensorcloud/format"
)

type kindPartitions struct {
	parts    map[string]PartitionRange
	complete bool
}

type channelState struct {
	timeSeries kindPartitions
	histogram  kindPartitions
}

func (c *channelState) kind(k format.StreamKind) *kindPartitions {
	if k == format.StreamHistogram {
		return &c.histogram
	}

	return &c.timeSeries
}

// MemoryStore is a Store held in memory. It is safe for concurrent use and
// may be shared by several devices.
type MemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]Credentials
	channels    map[ChannelKey]*channelState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		credentials: make(map[string]Credentials),
		channels:    make(map[ChannelKey]*channelState),
	}
}

func (s *MemoryStore) Credentials(deviceID string) (Credentials, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[deviceID]

	return c, ok, nil
}

func (s *MemoryStore) SetCredentials(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[c.DeviceID] = c

	return nil
}

func (s *MemoryStore) Partitions(ch ChannelKey, kind format.StreamKind) (map[string]PartitionRange, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cs, ok := s.channels[ch]
	if !ok {
		return map[string]PartitionRange{}, false, nil
	}
	kp := cs.kind(kind)
	out := make(map[string]PartitionRange, len(kp.parts))
	maps.Copy(out, kp.parts)

	return out, kp.complete, nil
}

func (s *MemoryStore) ReplacePartitions(ch ChannelKey, kind format.StreamKind, parts map[string]PartitionRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp := s.channel(ch).kind(kind)
	kp.parts = maps.Clone(parts)
	if kp.parts == nil {
		kp.parts = make(map[string]PartitionRange)
	}
	kp.complete = true

	return nil
}

func (s *MemoryStore) SetPartition(key PartitionKey, r PartitionRange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp := s.channel(key.ChannelKey).kind(key.Kind)
	if kp.parts == nil {
		kp.parts = make(map[string]PartitionRange)
	}
	kp.parts[key.Descriptor] = r

	return nil
}

func (s *MemoryStore) ForgetChannel(ch ChannelKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.channels, ch)

	return nil
}

func (s *MemoryStore) ForgetSensor(deviceID, sensor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.channels {
		if key.DeviceID == deviceID && key.Sensor == sensor {
			delete(s.channels, key)
		}
	}

	return nil
}

// channel returns the state of ch, creating it. The caller holds the write lock.
func (s *MemoryStore) channel(ch ChannelKey) *channelState {
	cs, ok := s.channels[ch]
	if !ok {
		cs = &channelState{}
		s.channels[ch] = cs
	}

	return cs
}
