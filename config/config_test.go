package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorcloud-go/sensorcloud"
	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/fakecloud"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/state"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, pipeline.DefaultAuthServer, cfg.AuthServer)
	assert.Equal(t, pipeline.DefaultUserAgent, cfg.UserAgent)
	assert.True(t, cfg.Reauthenticate)
	assert.Equal(t, "gzip", cfg.Compression)
	assert.Equal(t, sensorcloud.DefaultUploadLimit, cfg.UploadLimit)
	assert.Equal(t, "json", cfg.State.Encoding)

	// credentials are the only thing missing
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device_id is required")
	assert.Contains(t, err.Error(), "device_key is required")
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "device.yaml", `
device_id: OAPI00B1234567
device_key: secret
auth_server: http://localhost:8080
reauthenticate: false
compression: zstd
compression_threshold: 64
upload_limit: 500
state:
  encoding: cbor
  compression: s2
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "OAPI00B1234567", cfg.DeviceID)
	assert.Equal(t, "secret", cfg.DeviceKey)
	assert.Equal(t, "http://localhost:8080", cfg.AuthServer)
	assert.False(t, cfg.Reauthenticate)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 64, cfg.CompressionThreshold)
	assert.Equal(t, 500, cfg.UploadLimit)
	assert.Equal(t, StateConfig{Encoding: "cbor", Compression: "s2"}, cfg.State)
	// unset keys keep their defaults
	assert.Equal(t, pipeline.DefaultUserAgent, cfg.UserAgent)
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeFile(t, "device.jsonc", `{
  // issued by the portal
  "device_id": "OAPI00B1234567",
  "device_key": "secret",
  /* keep uploads small */
  "upload_limit": 100,
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OAPI00B1234567", cfg.DeviceID)
	assert.Equal(t, 100, cfg.UploadLimit)
	assert.Equal(t, "gzip", cfg.Compression)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")

	_, err = LoadFile(writeFile(t, "bad.yaml", "device_id: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"auth server scheme", func(c *Config) { c.AuthServer = "sensorcloud.microstrain.com" }, "auth_server"},
		{"lz4 requests", func(c *Config) { c.Compression = "lz4" }, "compression \"lz4\""},
		{"unknown compression", func(c *Config) { c.Compression = "brotli" }, "compression \"brotli\""},
		{"negative threshold", func(c *Config) { c.CompressionThreshold = -1 }, "compression_threshold"},
		{"upload limit zero", func(c *Config) { c.UploadLimit = 0 }, "upload_limit"},
		{"upload limit too large", func(c *Config) { c.UploadLimit = sensorcloud.MaxUploadLimit + 1 }, "upload_limit"},
		{"state encoding", func(c *Config) { c.State.Encoding = "xml" }, "state.encoding"},
		{"state compression", func(c *Config) { c.State.Compression = "rar" }, "state.compression"},
		{"none is allowed", func(c *Config) { c.Compression = "none" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.DeviceID = "dev"
			cfg.DeviceKey = "key"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv(EnvConfig, "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvConfig)

	path := writeFile(t, "device.yml", "device_id: dev\n")
	t.Setenv(EnvConfig, path)
	t.Setenv("SENSORCLOUD_DEVICE_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.DeviceKey)
}

func TestParse_FileKeyWinsOverEnvironment(t *testing.T) {
	t.Setenv("SENSORCLOUD_DEVICE_KEY", "from-env")

	cfg, err := Parse([]byte("device_id: dev\ndevice_key: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.DeviceKey)
}

func TestState_RoundTrip(t *testing.T) {
	for _, encoding := range []string{"json", "cbor"} {
		t.Run(encoding, func(t *testing.T) {
			cfg := Default()
			cfg.DeviceID = "dev"
			cfg.DeviceKey = "key"
			cfg.State = StateConfig{Encoding: encoding, Compression: "zstd"}

			store := state.NewMemoryStore()
			require.NoError(t, store.SetCredentials(state.Credentials{DeviceID: "dev", Server: "https://api", Token: "t"}))
			key := state.PartitionKey{
				ChannelKey: state.ChannelKey{DeviceID: "dev", Sensor: "s", Channel: "c"},
				Kind:       format.StreamTimeSeries,
				Descriptor: "10 hertz",
			}
			require.NoError(t, store.SetPartition(key, state.PartitionRange{Start: 5, End: 50}))

			blob, err := cfg.MarshalState(store)
			require.NoError(t, err)

			reopened := state.NewMemoryStore()
			require.NoError(t, cfg.RestoreState(reopened, blob))

			creds, ok, err := reopened.Credentials("dev")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "t", creds.Token)

			parts, _, err := reopened.Partitions(key.ChannelKey, key.Kind)
			require.NoError(t, err)
			assert.Equal(t, state.PartitionRange{Start: 5, End: 50}, parts["10 hertz"])
		})
	}
}

func TestRestoreState_OtherDevice(t *testing.T) {
	cfg := Default()
	cfg.DeviceID = "dev-a"
	store := state.NewMemoryStore()
	require.NoError(t, store.SetCredentials(state.Credentials{DeviceID: "dev-a", Token: "t"}))
	blob, err := cfg.MarshalState(store)
	require.NoError(t, err)

	cfg.DeviceID = "dev-b"
	err = cfg.RestoreState(state.NewMemoryStore(), blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dev-a")
}

func TestRestoreState_Corrupt(t *testing.T) {
	cfg := Default()
	cfg.DeviceID = "dev"

	err := cfg.RestoreState(state.NewMemoryStore(), []byte("not a snapshot"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrFormat)
}

func TestNewDevice(t *testing.T) {
	srv := fakecloud.New("dev-1", "key-1")
	t.Cleanup(srv.Close)

	cfg := Default()
	cfg.DeviceID = "dev-1"
	cfg.DeviceKey = "key-1"
	cfg.AuthServer = srv.URL()
	cfg.UploadLimit = 2

	opts := []sensorcloud.Option{
		sensorcloud.WithHTTPClient(srv.Client()),
		sensorcloud.WithLogger(slog.New(slog.DiscardHandler)),
	}
	store := state.NewMemoryStore()
	device, err := cfg.NewDevice(store, opts...)
	require.NoError(t, err)

	ctx := context.Background()
	ch := device.Sensor("engine").Channel("rpm")
	points := []series.Point{{Timestamp: 1, Value: 1}, {Timestamp: 2, Value: 2}, {Timestamp: 3, Value: 3}}
	require.NoError(t, ch.AppendTimeSeries(ctx, series.Hertz(1), points))
	_, _, err = ch.LastTimestamp(ctx, series.Filter{})
	require.NoError(t, err)

	uploads := 0
	for _, c := range srv.Calls() {
		if c.Method == "POST" && c.Status == 201 {
			uploads++
		}
	}
	assert.Equal(t, 2, uploads, "upload limit 2 splits three points")
	assert.Len(t, srv.Points("engine", "rpm", series.Hertz(1)), 3)

	blob, err := cfg.MarshalState(store)
	require.NoError(t, err)

	// a device restored from the snapshot knows the range without asking
	srv.ResetCalls()
	restored := state.NewMemoryStore()
	require.NoError(t, cfg.RestoreState(restored, blob))
	device2, err := cfg.NewDevice(restored, opts...)
	require.NoError(t, err)

	last, known, err := device2.Sensor("engine").Channel("rpm").LastTimestamp(ctx, series.Filter{})
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, uint64(3), last)
	assert.Empty(t, srv.Calls())
}
