// Package config loads SensorCloud device configuration from a file.
//
// The file is selected by the SENSORCLOUD_CONFIG environment variable or
// passed to LoadFile directly. YAML is the native format; files ending in
// .json or .jsonc are accepted as JSON with comments and trailing commas.
//
// A minimal file:
//
//	device_id: OAPI00B1234567
//	device_key: 0123456789ABCDEF
//	compression: gzip
//	state:
//	  encoding: cbor
//	  compression: zstd
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/sensorcloud-go/sensorcloud"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/state"
)

// EnvConfig names the environment variable read by Load.
const EnvConfig = "SENSORCLOUD_CONFIG"

// Config is the configuration of one device.
type Config struct {
	// AuthServer is the scheme and host of the authentication server.
	// Default: https://sensorcloud.microstrain.com
	AuthServer string `yaml:"auth_server"`

	DeviceID  string `yaml:"device_id"`
	DeviceKey string `yaml:"device_key"`

	UserAgent string `yaml:"user_agent"`

	// Reauthenticate enables one transparent reauthentication when the
	// server rejects the session. Default: true
	Reauthenticate bool `yaml:"reauthenticate"`

	// Compression is one of none, gzip or zstd. Default: gzip
	Compression string `yaml:"compression"`

	// CompressionThreshold is the smallest body size that is compressed.
	CompressionThreshold int `yaml:"compression_threshold"`

	// UploadLimit caps the number of samples per upload request.
	// Default: 20000
	UploadLimit int `yaml:"upload_limit"`

	OSVersion string `yaml:"os_version"`
	LocalIP   string `yaml:"local_ip"`

	State StateConfig `yaml:"state"`
}

// StateConfig selects how MarshalState encodes client state. Where the
// bytes are kept is up to the caller.
type StateConfig struct {
	// Encoding is json or cbor. Default: json
	Encoding string `yaml:"encoding"`

	// Compression is one of none, gzip, zstd, s2 or lz4. Default: none
	Compression string `yaml:"compression"`
}

// Default returns a configuration with every default applied and no
// credentials.
func Default() *Config {
	defaults := pipeline.DefaultConfig("", "")

	return &Config{
		AuthServer:           defaults.AuthServer,
		UserAgent:            defaults.UserAgent,
		Reauthenticate:       defaults.Reauthenticate,
		Compression:          defaults.Compression.ContentEncoding(),
		CompressionThreshold: defaults.CompressionThreshold,
		UploadLimit:          sensorcloud.DefaultUploadLimit,
		State: StateConfig{
			Encoding:    "json",
			Compression: "none",
		},
	}
}

// Load reads the file named by SENSORCLOUD_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		return nil, fmt.Errorf("config: %s is not set", EnvConfig)
	}

	return LoadFile(path)
}

// LoadFile reads, defaults and validates the file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes YAML (or plain JSON) over the defaults and validates the
// result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv lets the device key come from the environment so it can stay out
// of the file.
func (c *Config) applyEnv() {
	if key := os.Getenv("SENSORCLOUD_DEVICE_KEY"); key != "" && c.DeviceKey == "" {
		c.DeviceKey = key
	}
}

// Validate reports every problem found in c.
func (c *Config) Validate() error {
	var problems []error

	if c.DeviceID == "" {
		problems = append(problems, errors.New("device_id is required"))
	}
	if c.DeviceKey == "" {
		problems = append(problems, errors.New("device_key is required"))
	}
	if !strings.HasPrefix(c.AuthServer, "http://") && !strings.HasPrefix(c.AuthServer, "https://") {
		problems = append(problems, fmt.Errorf("auth_server %q must start with http:// or https://", c.AuthServer))
	}
	if ct, ok := format.ParseCompressionType(c.Compression); !ok || (ct != format.CompressionNone && ct.ContentEncoding() == "") {
		problems = append(problems, fmt.Errorf("compression %q is not an HTTP content coding", c.Compression))
	}
	if c.CompressionThreshold < 0 {
		problems = append(problems, fmt.Errorf("compression_threshold must not be negative, got %d", c.CompressionThreshold))
	}
	if c.UploadLimit < 1 || c.UploadLimit > sensorcloud.MaxUploadLimit {
		problems = append(problems, fmt.Errorf("upload_limit must be between 1 and %d, got %d", sensorcloud.MaxUploadLimit, c.UploadLimit))
	}
	if _, ok := parseEncoding(c.State.Encoding); !ok {
		problems = append(problems, fmt.Errorf("state.encoding %q must be json or cbor", c.State.Encoding))
	}
	if _, ok := format.ParseCompressionType(c.State.Compression); !ok {
		problems = append(problems, fmt.Errorf("state.compression %q is unknown", c.State.Compression))
	}

	return errors.Join(problems...)
}

// DeviceOptions converts c into options for sensorcloud.NewDevice. A nil
// store leaves the device with its own memory store.
func (c *Config) DeviceOptions(store state.Store) []sensorcloud.Option {
	compression, _ := format.ParseCompressionType(c.Compression)

	opts := []sensorcloud.Option{
		sensorcloud.WithAuthServer(c.AuthServer),
		sensorcloud.WithUserAgent(c.UserAgent),
		sensorcloud.WithReauthenticate(c.Reauthenticate),
		sensorcloud.WithCompression(compression, c.CompressionThreshold),
		sensorcloud.WithUploadLimit(c.UploadLimit),
		sensorcloud.WithDeviceInfo(c.OSVersion, c.LocalIP),
	}
	if store != nil {
		opts = append(opts, sensorcloud.WithStore(store))
	}

	return opts
}

// NewDevice creates the configured device. Extra options are applied after
// the configured ones.
func (c *Config) NewDevice(store state.Store, extra ...sensorcloud.Option) (*sensorcloud.Device, error) {
	opts := append(c.DeviceOptions(store), extra...)

	return sensorcloud.NewDevice(c.DeviceID, c.DeviceKey, opts...)
}

func parseEncoding(name string) (state.Encoding, bool) {
	switch strings.ToLower(name) {
	case "", "json":
		return state.EncodingJSON, true
	case "cbor":
		return state.EncodingCBOR, true
	default:
		return 0, false
	}
}
