package sensorcloud

import (
	"log/slog"
	"net/http"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/options"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/state"
)

// DefaultUploadLimit is the maximum number of samples sent in one append
// request.
const DefaultUploadLimit = 20000

// MaxUploadLimit is the largest upload limit the service accepts.
const MaxUploadLimit = 100000

type deviceConfig struct {
	pipeline    pipeline.Config
	uploadLimit int
}

// Option configures a Device.
type Option = options.Option[*deviceConfig]

// WithAuthServer sets the base URL of the authentication server.
func WithAuthServer(authServer string) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.AuthServer = authServer
	})
}

// WithHTTPClient sets the client used for every request.
func WithHTTPClient(client *http.Client) Option {
	return options.New(func(c *deviceConfig) error {
		if client == nil {
			return errs.Validationf("http client must not be nil")
		}
		c.pipeline.HTTPClient = client

		return nil
	})
}

// WithDoer sets a custom request executor, e.g. an instrumented transport.
func WithDoer(doer pipeline.Doer) Option {
	return options.New(func(c *deviceConfig) error {
		if doer == nil {
			return errs.Validationf("doer must not be nil")
		}
		c.pipeline.HTTPClient = doer

		return nil
	})
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.Logger = logger
	})
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.UserAgent = userAgent
	})
}

// WithReauthenticate enables or disables transparent reauthentication when a
// request is rejected with 401. It is enabled by default.
func WithReauthenticate(enabled bool) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.Reauthenticate = enabled
	})
}

// WithCompression sets the request body compression and the minimum body
// size it applies to. Only format.CompressionNone, format.CompressionGzip and
// format.CompressionZstd have an HTTP content encoding.
func WithCompression(compression format.CompressionType, threshold int) Option {
	return options.New(func(c *deviceConfig) error {
		if compression != format.CompressionNone && compression.ContentEncoding() == "" {
			return errs.Validationf("compression %s cannot be used for requests", compression)
		}
		c.pipeline.Compression = compression
		c.pipeline.CompressionThreshold = threshold

		return nil
	})
}

// WithStore sets the store that persists the session and partition ranges.
// Without it, state lives in memory for the lifetime of the Device.
func WithStore(store state.Store) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.Store = store
	})
}

// WithUploadLimit sets the maximum number of samples per append request.
func WithUploadLimit(limit int) Option {
	return options.New(func(c *deviceConfig) error {
		if limit <= 0 || limit > MaxUploadLimit {
			return errs.Validationf("upload limit must be in [1, %d], got %d", MaxUploadLimit, limit)
		}
		c.uploadLimit = limit

		return nil
	})
}

// WithObserver sets the receiver of pipeline events, e.g. a metrics.Collector.
func WithObserver(observer pipeline.Observer) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.Observer = observer
	})
}

// WithDeviceInfo sets the OS version and local IP reported when
// authenticating. Empty values are not sent.
func WithDeviceInfo(osVersion, localIP string) Option {
	return options.NoError(func(c *deviceConfig) {
		c.pipeline.OSVersion = osVersion
		c.pipeline.LocalIP = localIP
	})
}
