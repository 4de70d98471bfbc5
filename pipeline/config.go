package pipeline

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/state"
)

// Defaults.
const (
	DefaultAuthServer           = "https://sensorcloud.microstrain.com"
	DefaultUserAgent            = "sensorcloud-go/1.0"
	DefaultCompressionThreshold = 1024
	// MaxResponseSize bounds the bytes read from a single response body.
	MaxResponseSize = 64 * 1024 * 1024
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Observer receives pipeline events. Implementations must be cheap; they run
// on the request path.
type Observer interface {
	// ObserveRequest is called after every HTTP exchange. statusCode is 0
	// when the exchange failed in transport.
	ObserveRequest(method string, statusCode int, duration time.Duration)
	// ObserveAuthenticate is called after every authentication attempt.
	ObserveAuthenticate(err error)
	// ObserveReplay is called whenever a request is resubmitted.
	ObserveReplay(reason string)
	// ObserveCompression is called after a request body was compressed.
	ObserveCompression(stats compress.CompressionStats)
}

// Replay reasons passed to Observer.ObserveReplay.
const (
	ReplayReauthenticate = "reauthenticate"
	ReplayInterceptor    = "interceptor"
)

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration)   {}
func (nopObserver) ObserveAuthenticate(error)                   {}
func (nopObserver) ObserveReplay(string)                        {}
func (nopObserver) ObserveCompression(compress.CompressionStats) {}

// Config holds the settings of one Pipeline.
type Config struct {
	// AuthServer is the base URL of the authentication server, including
	// scheme. Its scheme is reused for the API server it hands out.
	AuthServer string
	// DeviceID and DeviceKey identify the device.
	DeviceID  string
	DeviceKey string

	// HTTPClient sends every request. If nil, a plain *http.Client is used.
	HTTPClient Doer
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// UserAgent is sent with every request.
	UserAgent string

	// Reauthenticate enables a single transparent reauthentication and
	// replay when a request is answered with 401.
	Reauthenticate bool

	// Compression is applied to request bodies of at least
	// CompressionThreshold bytes when it makes them smaller. Only types with
	// an HTTP Content-Encoding (gzip, zstd) or none are accepted.
	Compression          format.CompressionType
	CompressionThreshold int

	// Store receives the session after every authentication and provides
	// the initial session. If nil, nothing is persisted.
	Store state.Store
	// Observer receives pipeline events. If nil, events are dropped.
	Observer Observer

	// OSVersion and LocalIP are optional details reported when authenticating.
	OSVersion string
	LocalIP   string
}

// DefaultConfig returns the default configuration for a device.
func DefaultConfig(deviceID, deviceKey string) Config {
	return Config{
		AuthServer:           DefaultAuthServer,
		DeviceID:             deviceID,
		DeviceKey:            deviceKey,
		UserAgent:            DefaultUserAgent,
		Reauthenticate:       true,
		Compression:          format.CompressionGzip,
		CompressionThreshold: DefaultCompressionThreshold,
	}
}

// Validate checks required fields and fills defaults for optional ones.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return errs.Validationf("device id is required")
	}
	if c.DeviceKey == "" {
		return errs.Validationf("device key is required")
	}
	if c.AuthServer == "" {
		c.AuthServer = DefaultAuthServer
	}
	u, err := url.Parse(c.AuthServer)
	if err != nil {
		return errs.Validationf("invalid auth server %q: %v", c.AuthServer, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errs.Validationf("auth server %q must use http or https", c.AuthServer)
	}
	if u.Host == "" {
		return errs.Validationf("auth server %q has no host", c.AuthServer)
	}
	// url.Parse already lowercased the scheme; the path keeps its case
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	c.AuthServer = u.String()

	if c.Compression == 0 {
		c.Compression = format.CompressionNone
	}
	if c.Compression != format.CompressionNone && c.Compression.ContentEncoding() == "" {
		return errs.Validationf("compression %s has no HTTP content encoding", c.Compression)
	}
	if c.CompressionThreshold < 0 {
		return errs.Validationf("compression threshold must not be negative, got %d", c.CompressionThreshold)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Observer == nil {
		c.Observer = nopObserver{}
	}

	return nil
}
