package sensorcloud

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
)

// createSensor creates the sensor when a request fails with "sensor not
// found" and asks for a replay.
type createSensor struct {
	sensor *Sensor
}

func (i *createSensor) Handle(ctx context.Context, resp *pipeline.Response) (pipeline.Verdict, error) {
	if !resp.HasCode(http.StatusNotFound, errs.CodeSensorNotFound) {
		return pipeline.Continue, nil
	}

	s := i.sensor
	s.device.logger.Info("sensor not found, creating it",
		"device_id", s.device.id,
		"sensor", s.name,
		"request_id", resp.RequestID,
	)
	if _, err := s.device.AddSensor(ctx, s.name, SensorAttributes{}); ignoreConflict(err) != nil {
		return pipeline.Stop, fmt.Errorf("sensorcloud: auto-create sensor %q: %w", s.name, err)
	}

	return pipeline.Replay, nil
}

// createChannel creates the channel, and its sensor if that is missing too,
// when a request fails with "sensor not found" or "channel not found".
type createChannel struct {
	channel *Channel
}

func (i *createChannel) Handle(ctx context.Context, resp *pipeline.Response) (pipeline.Verdict, error) {
	c := i.channel
	s := c.sensor

	switch {
	case resp.HasCode(http.StatusNotFound, errs.CodeSensorNotFound):
		s.device.logger.Info("sensor not found, creating sensor and channel",
			"device_id", s.device.id,
			"sensor", s.name,
			"channel", c.name,
			"request_id", resp.RequestID,
		)
		if _, err := s.device.AddSensor(ctx, s.name, SensorAttributes{}); ignoreConflict(err) != nil {
			return pipeline.Stop, fmt.Errorf("sensorcloud: auto-create sensor %q: %w", s.name, err)
		}

	case resp.HasCode(http.StatusNotFound, errs.CodeChannelNotFound):
		s.device.logger.Info("channel not found, creating it",
			"device_id", s.device.id,
			"sensor", s.name,
			"channel", c.name,
			"request_id", resp.RequestID,
		)

	default:
		return pipeline.Continue, nil
	}

	if _, err := s.AddChannel(ctx, c.name, ChannelAttributes{}); ignoreConflict(err) != nil {
		return pipeline.Stop, fmt.Errorf("sensorcloud: auto-create channel %q: %w", c.name, err)
	}

	return pipeline.Replay, nil
}

// ignoreConflict drops the error of a create call that lost a race against
// another writer creating the same resource.
func ignoreConflict(err error) error {
	if errs.HasCode(err, errs.CodeConflict) {
		return nil
	}

	return err
}
