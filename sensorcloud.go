// Package sensorcloud is a client for the SensorCloud time-series ingestion
// service.
//
// A Device authenticates with its id and key and is the root of a resource
// tree of sensors and channels. Channels accept time-series points and
// histograms; missing sensors and channels are created on the fly when an
// append reports them as not found.
//
// # Core Features
//
//   - Lazy authentication with one transparent reauthentication on 401
//   - Auto-provisioning of sensors and channels on append
//   - XDR wire encoding of points, histograms and partition metadata
//   - Chunked uploads with optional gzip or zstd request compression
//   - Partition tracking that answers "last stored timestamp" locally
//   - Pluggable state store with checksummed snapshots
//
// # Basic Usage
//
//	device, err := sensorcloud.NewDevice("OAPI00ABCDEF", "device-key",
//	    sensorcloud.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    return err
//	}
//
//	ch := device.Sensor("weather").Channel("temperature")
//
//	p, _ := series.NewPoint(time.Now(), 21.5)
//	err = ch.AppendTimeSeries(ctx, series.Hertz(1), []series.Point{p})
//
// Reading data back:
//
//	for p, err := range ch.TimeSeries(ctx, 0, sensorcloud.MaxTimestamp) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(p)
//	}
//
// # Package Structure
//
// This package ties the lower layers together: pipeline executes
// authenticated requests, wire encodes payloads, partition tracks stored
// ranges and state persists them. Errors are classified by the errs package.
// The config package builds devices from a YAML file and metrics exports
// pipeline activity to Prometheus.
package sensorcloud
