package sensorcloud

import (
	"context"
	"net/http"
	"slices"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// AppendTimeSeries appends points sampled at rate to the channel, creating the
// sensor and channel if needed.
//
// Points are sent in chunks of at most the device's upload limit. Each chunk
// is committed independently: when a chunk fails, earlier chunks stay stored
// and recorded in the tracker. An empty slice sends nothing.
func (c *Channel) AppendTimeSeries(ctx context.Context, rate series.SampleRate, points []series.Point) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	descriptor := series.TimeSeriesDescriptor(rate)
	for chunk := range slices.Chunk(points, c.sensor.device.uploadLimit) {
		body := wire.EncodeTimeSeriesBatch(rate, chunk)
		if err := c.upload(ctx, "append time-series", "/streams/timeseries/data/", body); err != nil {
			return err
		}

		first, last := chunk[0].Timestamp, chunk[0].Timestamp
		for _, p := range chunk[1:] {
			first = min(first, p.Timestamp)
			last = max(last, p.Timestamp)
		}
		c.record(format.StreamTimeSeries, descriptor, rate, series.HistogramShape{}, first, last)

		c.sensor.device.logger.Debug("appended time-series",
			"sensor", c.sensor.name,
			"channel", c.name,
			"sample_rate", rate.String(),
			"points", len(chunk),
		)
	}

	return nil
}

// AppendHistograms appends histograms sampled at rate to the channel, creating
// the sensor and channel if needed. Every histogram must have the shape of the
// first one; otherwise nothing is sent.
//
// Chunking and failure semantics follow AppendTimeSeries.
func (c *Channel) AppendHistograms(ctx context.Context, rate series.SampleRate, hists []series.Histogram) error {
	if err := validateRate(rate); err != nil {
		return err
	}
	if len(hists) == 0 {
		return nil
	}

	shape := hists[0].Shape()
	if err := wire.ValidateHistogramShape(shape, hists); err != nil {
		return err
	}

	descriptor := series.HistogramDescriptor(rate, shape)
	for chunk := range slices.Chunk(hists, c.sensor.device.uploadLimit) {
		body, err := wire.EncodeHistogramBatch(rate, shape.BinStart, shape.BinSize, shape.NumBins, chunk)
		if err != nil {
			return err
		}
		if err := c.upload(ctx, "append histograms", "/streams/histogram/data/", body); err != nil {
			return err
		}

		first, last := chunk[0].Timestamp, chunk[0].Timestamp
		for _, h := range chunk[1:] {
			first = min(first, h.Timestamp)
			last = max(last, h.Timestamp)
		}
		c.record(format.StreamHistogram, descriptor, rate, shape, first, last)

		c.sensor.device.logger.Debug("appended histograms",
			"sensor", c.sensor.name,
			"channel", c.name,
			"descriptor", descriptor,
			"histograms", len(chunk),
		)
	}

	return nil
}

func (c *Channel) upload(ctx context.Context, op, subPath string, body []byte) error {
	// the stored tail is about to change
	c.invalidateSamples()

	resp, err := c.URL(subPath).
		ContentType(format.ContentTypeXDR).
		Body(body).
		Post(ctx)
	if err != nil {
		return err
	}

	return resp.Expect(op, http.StatusCreated)
}

func (c *Channel) record(kind format.StreamKind, descriptor string, rate series.SampleRate, shape series.HistogramShape, first, last uint64) {
	if err := c.tracker.Record(kind, descriptor, rate, shape, first, last); err != nil {
		c.sensor.device.logger.Warn("failed to record appended range",
			"sensor", c.sensor.name,
			"channel", c.name,
			"descriptor", descriptor,
			"error", err,
		)
	}
}

// validateRate checks the rate type. A zero rate is irregular sampling and
// accepted.
func validateRate(rate series.SampleRate) error {
	if !rate.Type.Valid() {
		return errs.Validationf("invalid sample rate type %d", rate.Type)
	}

	return nil
}
