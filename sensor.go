package sensorcloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/state"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// ChannelAttributes are the optional attributes of a new channel.
type ChannelAttributes struct {
	Label       string
	Description string
}

// Sensor is a sensor of a Device. Holding a Sensor does not imply it exists
// on the server.
type Sensor struct {
	device *Device
	name   string

	mu       sync.Mutex
	channels map[string]*Channel
}

func newSensor(d *Device, name string) *Sensor {
	return &Sensor{
		device:   d,
		name:     name,
		channels: make(map[string]*Channel),
	}
}

// Name returns the sensor name.
func (s *Sensor) Name() string {
	return s.name
}

// Device returns the owning device.
func (s *Sensor) Device() *Device {
	return s.device
}

// URL starts a request for a path relative to the sensor. A request answered
// with "sensor not found" creates the sensor and is sent again.
func (s *Sensor) URL(subPath string) *pipeline.Request {
	return s.URLWithoutCreate(subPath).Intercept(&createSensor{sensor: s})
}

// URLWithoutCreate starts a request for a path relative to the sensor without
// creating the sensor on demand.
func (s *Sensor) URLWithoutCreate(subPath string) *pipeline.Request {
	return s.device.URL(sensorPath(s.name) + normalizePath(subPath))
}

// AddChannel creates a channel, creating the sensor first if needed, and
// returns its handle. Creating an existing channel fails.
func (s *Sensor) AddChannel(ctx context.Context, name string, attrs ChannelAttributes) (*Channel, error) {
	if err := validateName("channel", name); err != nil {
		return nil, err
	}

	body := wire.EncodeCreateChannel(attrs.Label, attrs.Description)
	resp, err := s.URL(channelPath(name) + "/").
		ContentType(format.ContentTypeXDR).
		Body(body).
		Put(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect("add channel", http.StatusCreated); err != nil {
		return nil, err
	}

	s.device.logger.Info("channel created", "device_id", s.device.id, "sensor", s.name, "channel", name)

	return s.Channel(name), nil
}

// HasChannel reports whether the channel exists. A missing sensor reports
// false.
func (s *Sensor) HasChannel(ctx context.Context, name string) (bool, error) {
	resp, err := s.URLWithoutCreate(channelPath(name) + "/attributes/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, resp.Err("has channel")
	}
}

// Channel returns the handle of a channel. Handles are memoized; the channel
// is not required to exist.
func (s *Sensor) Channel(name string) *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.channels[name]
	if !ok {
		c = newChannel(s, name)
		s.channels[name] = c
	}

	return c
}

// Info returns the sensor's attributes.
func (s *Sensor) Info(ctx context.Context) (series.SensorInfo, error) {
	resp, err := s.URLWithoutCreate("/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return series.SensorInfo{}, err
	}
	if err := resp.Expect("sensor info", http.StatusOK); err != nil {
		return series.SensorInfo{}, err
	}

	info, err := wire.DecodeSensorInfo(resp.Body)
	if err != nil {
		return series.SensorInfo{}, fmt.Errorf("sensorcloud: sensor info: %w", err)
	}
	info.Name = s.name

	return info, nil
}

// Channels lists the sensor's channels.
func (s *Sensor) Channels(ctx context.Context) ([]series.ChannelInfo, error) {
	sensors, err := s.device.Sensors(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range sensors {
		if info.Name == s.name {
			return info.Channels, nil
		}
	}

	return nil, nil
}

// DeleteChannel deletes a channel and all of its data.
func (s *Sensor) DeleteChannel(ctx context.Context, name string) error {
	resp, err := s.URLWithoutCreate(channelPath(name) + "/").Delete(ctx)
	if err != nil {
		return err
	}
	if err := resp.Expect("delete channel", http.StatusNoContent); err != nil {
		return err
	}

	s.mu.Lock()
	c, ok := s.channels[name]
	delete(s.channels, name)
	s.mu.Unlock()

	if ok {
		c.forget()
	}
	key := state.ChannelKey{DeviceID: s.device.id, Sensor: s.name, Channel: name}
	if err := s.device.store.ForgetChannel(key); err != nil {
		s.device.logger.Warn("failed to forget channel state",
			"device_id", s.device.id,
			"sensor", s.name,
			"channel", name,
			"error", err,
		)
	}
	s.device.logger.Info("channel deleted", "device_id", s.device.id, "sensor", s.name, "channel", name)

	return nil
}

// forgetChannels drops the cached state of every channel handle.
func (s *Sensor) forgetChannels() {
	s.mu.Lock()
	channels := s.channels
	s.channels = make(map[string]*Channel)
	s.mu.Unlock()

	for _, c := range channels {
		c.forget()
	}
}

func channelPath(name string) string {
	return "/channels/" + url.PathEscape(name)
}
