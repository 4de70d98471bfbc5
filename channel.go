package sensorcloud

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/partition"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/state"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// Channel is a channel of a Sensor: the unit data is appended to and queried
// from. Holding a Channel does not imply it exists on the server.
type Channel struct {
	sensor  *Sensor
	name    string
	tracker *partition.Tracker

	mu            sync.Mutex
	lastPoint     *series.Point
	lastHistogram *series.Histogram
}

func newChannel(s *Sensor, name string) *Channel {
	c := &Channel{sensor: s, name: name}

	key := state.ChannelKey{DeviceID: s.device.id, Sensor: s.name, Channel: name}
	// NewTracker only fails without a lister.
	c.tracker, _ = partition.NewTracker(key, c,
		partition.WithStore(s.device.store),
		partition.WithLogger(s.device.logger),
	)

	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return c.name
}

// Sensor returns the owning sensor.
func (c *Channel) Sensor() *Sensor {
	return c.sensor
}

// Tracker returns the channel's partition tracker.
func (c *Channel) Tracker() *partition.Tracker {
	return c.tracker
}

// URL starts a request for a path relative to the channel. A request answered
// with "sensor not found" or "channel not found" creates what is missing and
// is sent again.
func (c *Channel) URL(subPath string) *pipeline.Request {
	return c.URLWithoutCreate(subPath).Intercept(&createChannel{channel: c})
}

// URLWithoutCreate starts a request for a path relative to the channel
// without creating anything on demand.
func (c *Channel) URLWithoutCreate(subPath string) *pipeline.Request {
	return c.sensor.URLWithoutCreate(channelPath(c.name) + normalizePath(subPath))
}

// Info returns the channel's attributes.
func (c *Channel) Info(ctx context.Context) (series.ChannelInfo, error) {
	resp, err := c.URLWithoutCreate("/attributes/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return series.ChannelInfo{}, err
	}
	if err := resp.Expect("channel info", http.StatusOK); err != nil {
		return series.ChannelInfo{}, err
	}

	info, err := wire.DecodeChannelInfo(resp.Body)
	if err != nil {
		return series.ChannelInfo{}, fmt.Errorf("sensorcloud: channel info: %w", err)
	}
	info.Name = c.name

	return info, nil
}

// ListPartitions lists the partitions of one stream kind from the server,
// bypassing the tracker.
func (c *Channel) ListPartitions(ctx context.Context, kind format.StreamKind) (map[string]series.Partition, error) {
	op := "list " + kind.String() + " partitions"
	resp, err := c.URLWithoutCreate("/streams/" + kind.String() + "/partitions/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect(op, http.StatusOK); err != nil {
		return nil, err
	}

	parts, err := wire.DecodePartitionListing(kind, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sensorcloud: %s: %w", op, err)
	}

	return parts, nil
}

// Partitions returns the partitions of one stream kind sorted by descriptor,
// listing them from the server only when the tracker does not know them.
func (c *Channel) Partitions(ctx context.Context, kind format.StreamKind) ([]series.Partition, error) {
	return c.tracker.Partitions(ctx, kind)
}

// StreamInfo returns the time range of one stream kind. ok is false when the
// channel holds no data of that kind.
func (c *Channel) StreamInfo(ctx context.Context, kind format.StreamKind) (info series.StreamInfo, ok bool, err error) {
	op := kind.String() + " stream info"
	resp, err := c.URLWithoutCreate("/streams/" + kind.String() + "/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return series.StreamInfo{}, false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return series.StreamInfo{}, false, nil
	}
	if err := resp.Expect(op, http.StatusOK); err != nil {
		return series.StreamInfo{}, false, err
	}

	info, err = wire.DecodeStreamInfo(kind, resp.Body)
	if err != nil {
		return series.StreamInfo{}, false, fmt.Errorf("sensorcloud: %s: %w", op, err)
	}

	return info, true, nil
}

// forget drops the cached samples and every partition range known for the
// channel.
func (c *Channel) forget() {
	c.invalidateSamples()
	if err := c.tracker.Invalidate(); err != nil {
		c.sensor.device.logger.Warn("failed to forget channel state",
			"sensor", c.sensor.name,
			"channel", c.name,
			"error", err,
		)
	}
}

func (c *Channel) invalidateSamples() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastPoint = nil
	c.lastHistogram = nil
}
