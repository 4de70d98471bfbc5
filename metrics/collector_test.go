package metrics

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorcloud-go/sensorcloud"
	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/fakecloud"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/series"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "")
	require.NoError(t, err)

	return c, reg
}

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric family %q not gathered", name)

	return nil
}

func TestCollector_ObserveRequest(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveRequest("GET", 200, 20*time.Millisecond)
	c.ObserveRequest("GET", 200, 30*time.Millisecond)
	c.ObserveRequest("POST", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "error")))

	mf := findFamily(t, reg, "sensorcloud_request_duration_seconds")
	require.Equal(t, dto.MetricType_HISTOGRAM, mf.GetType())
	var samples uint64
	for _, m := range mf.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	assert.Equal(t, uint64(3), samples)
}

func TestCollector_AuthAndReplay(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ObserveAuthenticate(nil)
	c.ObserveAuthenticate(errors.New("denied"))
	c.ObserveAuthenticate(nil)
	c.ObserveReplay(pipeline.ReplayReauthenticate)
	c.ObserveReplay(pipeline.ReplayInterceptor)
	c.ObserveReplay(pipeline.ReplayInterceptor)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authentications.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authentications.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replays.WithLabelValues(pipeline.ReplayReauthenticate)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.replays.WithLabelValues(pipeline.ReplayInterceptor)))
}

func TestCollector_ObserveCompression(t *testing.T) {
	c, reg := newTestCollector(t)

	c.ObserveCompression(compress.CompressionStats{
		Algorithm:      format.CompressionGzip,
		OriginalSize:   1000,
		CompressedSize: 250,
	})
	c.ObserveCompression(compress.CompressionStats{Algorithm: format.CompressionGzip})

	assert.Equal(t, 1000.0, testutil.ToFloat64(c.bytesIn.WithLabelValues("Gzip")))
	assert.Equal(t, 250.0, testutil.ToFloat64(c.bytesOut.WithLabelValues("Gzip")))

	mf := findFamily(t, reg, "sensorcloud_compression_ratio")
	require.Len(t, mf.GetMetric(), 1)
	h := mf.GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(1), h.GetSampleCount())
	assert.InDelta(t, 0.25, h.GetSampleSum(), 1e-9)
}

func TestNewCollector_Namespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "edge")
	require.NoError(t, err)

	c.ObserveReplay(pipeline.ReplayInterceptor)
	findFamily(t, reg, "edge_replays_total")
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg, "")
	require.NoError(t, err)

	_, err = NewCollector(reg, "")
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestCollector_WithDevice(t *testing.T) {
	srv := fakecloud.New("dev-1", "key-1")
	t.Cleanup(srv.Close)

	c, reg := newTestCollector(t)
	device, err := sensorcloud.NewDevice("dev-1", "key-1",
		sensorcloud.WithAuthServer(srv.URL()),
		sensorcloud.WithHTTPClient(srv.Client()),
		sensorcloud.WithLogger(slog.New(slog.DiscardHandler)),
		sensorcloud.WithObserver(c),
	)
	require.NoError(t, err)

	ctx := context.Background()
	ch := device.Sensor("engine").Channel("rpm")
	rate := series.Hertz(1)
	err = ch.AppendTimeSeries(ctx, rate, []series.Point{{Timestamp: 1, Value: 1}, {Timestamp: 2, Value: 2}})
	require.NoError(t, err)

	// one authentication, then 404 on upload, sensor and channel creation, replay
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authentications.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.replays.WithLabelValues(pipeline.ReplayInterceptor)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "201")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("PUT", "201")))

	count, err := testutil.GatherAndCount(reg, "sensorcloud_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
