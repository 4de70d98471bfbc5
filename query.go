package sensorcloud

import (
	"context"
	"fmt"
	"iter"
	"math"
	"net/http"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/options"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// MaxTimestamp is the largest representable timestamp, used as an open end.
const MaxTimestamp = math.MaxUint64

type queryConfig struct {
	rate *series.SampleRate
}

// QueryOption configures a time-series query.
type QueryOption = options.Option[*queryConfig]

// AtSampleRate restricts a query to the partition sampled at rate.
func AtSampleRate(rate series.SampleRate) QueryOption {
	return options.New(func(c *queryConfig) error {
		if err := validateRate(rate); err != nil {
			return err
		}
		c.rate = &rate

		return nil
	})
}

// TimeSeries returns the points stored in [start, end] in timestamp order.
// The range is downloaded page by page while iterating; iteration stops at
// the first error, which is yielded with a zero Point. A channel without
// time-series data yields nothing.
func (c *Channel) TimeSeries(ctx context.Context, start, end uint64, opts ...QueryOption) iter.Seq2[series.Point, error] {
	return func(yield func(series.Point, error) bool) {
		cfg := &queryConfig{}
		if err := options.Apply(cfg, opts...); err != nil {
			yield(series.Point{}, err)
			return
		}
		if end < start {
			yield(series.Point{}, errs.Validationf("end %d is before start %d", end, start))
			return
		}

		current := start
		for {
			page, err := c.downloadPage(ctx, current, end, cfg.rate)
			if err != nil {
				yield(series.Point{}, err)
				return
			}
			if len(page) == 0 {
				return
			}

			for _, p := range page {
				if !yield(p, nil) {
					return
				}
			}

			last := page[len(page)-1].Timestamp
			if last >= end {
				return
			}
			if last < current {
				yield(series.Point{}, errs.Formatf("download page ending at %d does not advance past %d", last, current))
				return
			}
			current = last + 1
		}
	}
}

func (c *Channel) downloadPage(ctx context.Context, start, end uint64, rate *series.SampleRate) ([]series.Point, error) {
	const op = "download time-series"

	req := c.URLWithoutCreate("/streams/timeseries/data/").
		ParamUint("startTime", start).
		ParamUint("endTime", end).
		Accept(format.ContentTypeXDR)
	if rate != nil {
		req.Param("sampleRate", rate.String())
	}

	resp, err := req.Get(ctx)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := resp.Expect(op, http.StatusOK); err != nil {
		return nil, err
	}

	points, err := wire.DecodeTimeSeriesBatch(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sensorcloud: %s: %w", op, err)
	}

	return points, nil
}

// LastTimestamp returns the last stored timestamp over the partitions
// matching filter; series.Filter{} matches every partition.
//
// known is false when the sensor or channel does not exist. A channel that
// exists without matching data yields 0 with known set.
func (c *Channel) LastTimestamp(ctx context.Context, filter series.Filter) (ts uint64, known bool, err error) {
	return c.tracker.LastTimestamp(ctx, filter)
}

// FirstTimestamp returns the first stored timestamp over the partitions
// matching filter. ok is false when nothing matches.
func (c *Channel) FirstTimestamp(ctx context.Context, filter series.Filter) (ts uint64, ok bool, err error) {
	return c.tracker.FirstTimestamp(ctx, filter)
}

// LastPoint returns the most recent time-series point. ok is false when the
// channel holds no time-series data. The point is cached until the next
// append.
func (c *Channel) LastPoint(ctx context.Context) (p series.Point, ok bool, err error) {
	c.mu.Lock()
	cached := c.lastPoint
	c.mu.Unlock()
	if cached != nil {
		return *cached, true, nil
	}

	parts, err := c.tracker.Partitions(ctx, format.StreamTimeSeries)
	if err != nil || len(parts) == 0 {
		return series.Point{}, false, err
	}
	var last uint64
	for _, part := range parts {
		last = max(last, part.End)
	}

	page, err := c.downloadPage(ctx, last, last, nil)
	if err != nil || len(page) == 0 {
		return series.Point{}, false, err
	}
	p = page[len(page)-1]

	c.mu.Lock()
	c.lastPoint = &p
	c.mu.Unlock()

	return p, true, nil
}

// LastHistogram returns the most recent histogram. ok is false when the
// channel holds no histogram data. The histogram is cached until the next
// append.
func (c *Channel) LastHistogram(ctx context.Context) (h series.Histogram, ok bool, err error) {
	const op = "latest histogram"

	c.mu.Lock()
	cached := c.lastHistogram
	c.mu.Unlock()
	if cached != nil {
		return series.NewHistogram(cached.Timestamp, cached.BinStart, cached.BinSize, cached.Bins), true, nil
	}

	resp, err := c.URLWithoutCreate("/streams/histogram/data/latest/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return series.Histogram{}, false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return series.Histogram{}, false, nil
	}
	if err := resp.Expect(op, http.StatusOK); err != nil {
		return series.Histogram{}, false, err
	}

	h, err = wire.DecodeHistogram(resp.Body)
	if err != nil {
		return series.Histogram{}, false, fmt.Errorf("sensorcloud: %s: %w", op, err)
	}

	kept := series.NewHistogram(h.Timestamp, h.BinStart, h.BinSize, h.Bins)
	c.mu.Lock()
	c.lastHistogram = &kept
	c.mu.Unlock()

	return h, true, nil
}
