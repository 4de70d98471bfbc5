package sensorcloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/internal/options"
	"github.com/sensorcloud-go/sensorcloud/pipeline"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/state"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// SensorAttributes are the optional attributes of a new sensor.
type SensorAttributes struct {
	Type        string
	Label       string
	Description string
}

// Device is a SensorCloud device and the root of its resource tree.
//
// A Device is meant to be used by one goroutine at a time.
type Device struct {
	id          string
	p           *pipeline.Pipeline
	store       state.Store
	logger      *slog.Logger
	uploadLimit int

	mu      sync.Mutex
	sensors map[string]*Sensor
}

// NewDevice creates a device handle. No request is made; the first call
// authenticates unless a session for the device is found in the store.
func NewDevice(deviceID, deviceKey string, opts ...Option) (*Device, error) {
	cfg := &deviceConfig{
		pipeline:    pipeline.DefaultConfig(deviceID, deviceKey),
		uploadLimit: DefaultUploadLimit,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.pipeline.Store == nil {
		cfg.pipeline.Store = state.NewMemoryStore()
	}

	p, err := pipeline.New(cfg.pipeline)
	if err != nil {
		return nil, err
	}
	pcfg := p.Config()

	return &Device{
		id:          deviceID,
		p:           p,
		store:       pcfg.Store,
		logger:      pcfg.Logger,
		uploadLimit: cfg.uploadLimit,
		sensors:     make(map[string]*Sensor),
	}, nil
}

// ID returns the device id.
func (d *Device) ID() string {
	return d.id
}

// Store returns the store holding the device's session and partition ranges.
func (d *Device) Store() state.Store {
	return d.store
}

// Session returns the current session, if authenticated.
func (d *Device) Session() (pipeline.Session, bool) {
	return d.p.Session()
}

// Authenticate obtains a new session. Calling it is optional: requests
// authenticate on demand.
func (d *Device) Authenticate(ctx context.Context) error {
	return d.p.Authenticate(ctx)
}

// URL starts a request for a path relative to the device.
func (d *Device) URL(subPath string) *pipeline.Request {
	return d.p.URL(normalizePath(subPath))
}

// HasSensor reports whether the sensor exists.
func (d *Device) HasSensor(ctx context.Context, name string) (bool, error) {
	resp, err := d.URL(sensorPath(name) + "/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, resp.Err("has sensor")
	}
}

// AddSensor creates a sensor and returns its handle. Creating an existing
// sensor fails.
func (d *Device) AddSensor(ctx context.Context, name string, attrs SensorAttributes) (*Sensor, error) {
	if err := validateName("sensor", name); err != nil {
		return nil, err
	}

	body := wire.EncodeCreateSensor(attrs.Type, attrs.Label, attrs.Description)
	resp, err := d.URL(sensorPath(name) + "/").
		ContentType(format.ContentTypeXDR).
		Body(body).
		Put(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect("add sensor", http.StatusCreated); err != nil {
		return nil, err
	}

	d.logger.Info("sensor created", "device_id", d.id, "sensor", name)

	return d.Sensor(name), nil
}

// Sensor returns the handle of a sensor. Handles are memoized; the sensor is
// not required to exist.
func (d *Device) Sensor(name string) *Sensor {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sensors[name]
	if !ok {
		s = newSensor(d, name)
		d.sensors[name] = s
	}

	return s
}

// Sensors lists the device's sensors with their channels.
func (d *Device) Sensors(ctx context.Context) ([]series.SensorInfo, error) {
	resp, err := d.URL("/sensors/").Accept(format.ContentTypeXDR).Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := resp.Expect("list sensors", http.StatusOK); err != nil {
		return nil, err
	}

	sensors, err := wire.DecodeSensorListing(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sensorcloud: list sensors: %w", err)
	}

	return sensors, nil
}

// DeleteSensor deletes a sensor with all of its channels and data.
func (d *Device) DeleteSensor(ctx context.Context, name string) error {
	resp, err := d.URL(sensorPath(name) + "/").Delete(ctx)
	if err != nil {
		return err
	}
	if err := resp.Expect("delete sensor", http.StatusNoContent); err != nil {
		return err
	}

	d.mu.Lock()
	s, ok := d.sensors[name]
	delete(d.sensors, name)
	d.mu.Unlock()

	if ok {
		s.forgetChannels()
	}
	// the store may be shared with devices holding other handles
	if err := d.store.ForgetSensor(d.id, name); err != nil {
		d.logger.Warn("failed to forget sensor state", "device_id", d.id, "sensor", name, "error", err)
	}
	d.logger.Info("sensor deleted", "device_id", d.id, "sensor", name)

	return nil
}

func sensorPath(name string) string {
	return "/sensors/" + url.PathEscape(name)
}

func normalizePath(subPath string) string {
	if !strings.HasPrefix(subPath, "/") {
		return "/" + subPath
	}

	return subPath
}

func validateName(kind, name string) error {
	if name == "" {
		return errs.Validationf("%s name must not be empty", kind)
	}
	if len(name) > wire.MaxStringLen {
		return errs.Validationf("%s name exceeds %d bytes", kind, wire.MaxStringLen)
	}

	return nil
}
