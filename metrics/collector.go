// Package metrics exports SensorCloud client activity as Prometheus metrics.
//
// A Collector implements pipeline.Observer; pass it to a device with
// sensorcloud.WithObserver.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "sensorcloud"

// Collector records pipeline events. It is safe for concurrent use.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	authentications *prometheus.CounterVec
	replays         *prometheus.CounterVec
	bytesIn         *prometheus.CounterVec
	bytesOut        *prometheus.CounterVec
	compression     *prometheus.HistogramVec
}

var _ pipeline.Observer = (*Collector)(nil)

// NewCollector creates a collector and registers it with reg. A nil reg
// registers with prometheus.DefaultRegisterer; an empty namespace uses
// DefaultNamespace.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "HTTP requests sent, by method and status code. Transport failures use code \"error\".",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP exchanges including reading the body.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method"}),
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authentications_total",
			Help:      "Authentication attempts by result.",
		}, []string{"result"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Requests sent again, by reason.",
		}, []string{"reason"}),
		bytesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_input_bytes_total",
			Help:      "Request body bytes before compression.",
		}, []string{"algorithm"}),
		bytesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_output_bytes_total",
			Help:      "Request body bytes after compression.",
		}, []string{"algorithm"}),
		compression: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_ratio",
			Help:      "Compressed size divided by original size of request bodies.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"algorithm"}),
	}

	if err := reg.Register(c); err != nil {
		return nil, err
	}

	return c, nil
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.requests.Describe(ch)
	c.requestDuration.Describe(ch)
	c.authentications.Describe(ch)
	c.replays.Describe(ch)
	c.bytesIn.Describe(ch)
	c.bytesOut.Describe(ch)
	c.compression.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.requests.Collect(ch)
	c.requestDuration.Collect(ch)
	c.authentications.Collect(ch)
	c.replays.Collect(ch)
	c.bytesIn.Collect(ch)
	c.bytesOut.Collect(ch)
	c.compression.Collect(ch)
}

// ObserveRequest implements pipeline.Observer.
func (c *Collector) ObserveRequest(method string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	c.requests.WithLabelValues(method, code).Inc()
	c.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveAuthenticate implements pipeline.Observer.
func (c *Collector) ObserveAuthenticate(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	c.authentications.WithLabelValues(result).Inc()
}

// ObserveReplay implements pipeline.Observer.
func (c *Collector) ObserveReplay(reason string) {
	c.replays.WithLabelValues(reason).Inc()
}

// ObserveCompression implements pipeline.Observer.
func (c *Collector) ObserveCompression(stats compress.CompressionStats) {
	algorithm := stats.Algorithm.String()
	c.bytesIn.WithLabelValues(algorithm).Add(float64(stats.OriginalSize))
	c.bytesOut.WithLabelValues(algorithm).Add(float64(stats.CompressedSize))
	if stats.OriginalSize > 0 {
		c.compression.WithLabelValues(algorithm).Observe(float64(stats.CompressedSize) / float64(stats.OriginalSize))
	}
}
