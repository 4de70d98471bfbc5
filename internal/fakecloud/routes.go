package fakecloud

import (
	"cmp"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/sensorcloud-go/sensorcloud/errs"
	"github.com/sensorcloud-go/sensorcloud/format"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// route dispatches an authenticated API call. The caller holds s.mu.
func (s *Server) route(w http.ResponseWriter, r *http.Request, rest string, body []byte) {
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] != "sensors" {
		writeError(w, http.StatusNotFound, "404-000", "unknown resource")
		return
	}

	switch len(parts) {
	case 1:
		s.listSensors(w, r)
		return
	case 2:
		s.sensorResource(w, r, parts[1], body)
		return
	}

	if parts[2] != "channels" || len(parts) < 4 {
		writeError(w, http.StatusNotFound, "404-000", "unknown resource")
		return
	}
	sensorName, channelName := parts[1], parts[3]

	if len(parts) == 4 {
		s.channelResource(w, r, sensorName, channelName, body)
		return
	}

	sn, ok := s.sensors[sensorName]
	if !ok {
		writeError(w, http.StatusNotFound, errs.CodeSensorNotFound, "sensor not found")
		return
	}
	ch, ok := sn.channels[channelName]
	if !ok {
		writeError(w, http.StatusNotFound, errs.CodeChannelNotFound, "channel not found")
		return
	}

	sub := parts[4:]
	switch {
	case len(sub) == 1 && sub[0] == "attributes" && r.Method == http.MethodGet:
		writeXDR(w, http.StatusOK, wire.EncodeCreateChannel(ch.label, ch.description))
	case len(sub) >= 2 && sub[0] == "streams" && sub[1] == "timeseries":
		s.timeSeriesResource(w, r, ch, sub[2:], body)
	case len(sub) >= 2 && sub[0] == "streams" && sub[1] == "histogram":
		s.histogramResource(w, r, ch, sub[2:], body)
	default:
		writeError(w, http.StatusNotFound, "404-000", "unknown resource")
	}
}

func (s *Server) listSensors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	names := slices.Sorted(maps.Keys(s.sensors))
	infos := make([]series.SensorInfo, 0, len(names))
	for _, name := range names {
		sn := s.sensors[name]
		info := series.SensorInfo{Name: name, Type: sn.sensorType, Label: sn.label, Description: sn.description}
		for _, chName := range slices.Sorted(maps.Keys(sn.channels)) {
			ch := sn.channels[chName]
			ci := series.ChannelInfo{Name: chName, Label: ch.label, Description: ch.description}
			if len(ch.timeSeries) > 0 {
				ci.Streams = append(ci.Streams, format.StreamTimeSeries)
			}
			if len(ch.histograms) > 0 {
				ci.Streams = append(ci.Streams, format.StreamHistogram)
			}
			info.Channels = append(info.Channels, ci)
		}
		infos = append(infos, info)
	}

	writeXDR(w, http.StatusOK, wire.EncodeSensorListing(infos))
}

func (s *Server) sensorResource(w http.ResponseWriter, r *http.Request, name string, body []byte) {
	sn, exists := s.sensors[name]

	switch r.Method {
	case http.MethodGet:
		if !exists {
			writeError(w, http.StatusNotFound, errs.CodeSensorNotFound, "sensor not found")
			return
		}
		writeXDR(w, http.StatusOK, wire.EncodeCreateSensor(sn.sensorType, sn.label, sn.description))

	case http.MethodPut:
		if exists {
			writeError(w, http.StatusConflict, errs.CodeConflict, "sensor already exists")
			return
		}
		info, err := wire.DecodeSensorInfo(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "400-001", err.Error())
			return
		}
		s.sensors[name] = &sensor{
			sensorType:  info.Type,
			label:       info.Label,
			description: info.Description,
			channels:    make(map[string]*channel),
		}
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		if !exists {
			writeError(w, http.StatusNotFound, errs.CodeSensorNotFound, "sensor not found")
			return
		}
		delete(s.sensors, name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) channelResource(w http.ResponseWriter, r *http.Request, sensorName, name string, body []byte) {
	sn, ok := s.sensors[sensorName]
	if !ok {
		writeError(w, http.StatusNotFound, errs.CodeSensorNotFound, "sensor not found")
		return
	}
	_, exists := sn.channels[name]

	switch r.Method {
	case http.MethodPut:
		if exists {
			writeError(w, http.StatusConflict, errs.CodeConflict, "channel already exists")
			return
		}
		info, err := wire.DecodeChannelInfo(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "400-001", err.Error())
			return
		}
		sn.channels[name] = newChannel(info.Label, info.Description)
		w.WriteHeader(http.StatusCreated)

	case http.MethodDelete:
		if !exists {
			writeError(w, http.StatusNotFound, errs.CodeChannelNotFound, "channel not found")
			return
		}
		delete(sn.channels, name)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) timeSeriesResource(w http.ResponseWriter, r *http.Request, ch *channel, sub []string, body []byte) {
	switch {
	case len(sub) == 0 && r.Method == http.MethodGet:
		if len(ch.timeSeries) == 0 {
			writeError(w, http.StatusNotFound, errs.CodeTimeSeriesNotFound, "no time-series data")
			return
		}
		info := series.StreamInfo{Kind: format.StreamTimeSeries, Start: ^uint64(0)}
		for _, part := range ch.timeSeries {
			start, end := part.bounds()
			info.Start = min(info.Start, start)
			info.End = max(info.End, end)
		}
		writeXDR(w, http.StatusOK, wire.EncodeStreamInfo(info))

	case len(sub) == 1 && sub[0] == "data" && r.Method == http.MethodPost:
		rate, points, err := wire.DecodeTimeSeriesUpload(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "400-001", err.Error())
			return
		}
		descriptor := series.TimeSeriesDescriptor(rate)
		part, ok := ch.timeSeries[descriptor]
		if !ok {
			part = &tsPartition{rate: rate, points: make(map[uint64]float32)}
			ch.timeSeries[descriptor] = part
		}
		for _, p := range points {
			part.points[p.Timestamp] = p.Value
		}
		w.WriteHeader(http.StatusCreated)

	case len(sub) == 1 && sub[0] == "data" && r.Method == http.MethodGet:
		if len(ch.timeSeries) == 0 {
			writeError(w, http.StatusNotFound, errs.CodeTimeSeriesNotFound, "no time-series data")
			return
		}
		start, end, ok := timeRange(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "400-001", "invalid time range")
			return
		}
		var rate *series.SampleRate
		if v := r.URL.Query().Get("sampleRate"); v != "" {
			parsed, err := series.ParseSampleRate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "400-001", err.Error())
				return
			}
			rate = &parsed
		}

		var points []series.Point
		for _, part := range ch.timeSeries {
			if rate != nil && part.rate != *rate {
				continue
			}
			points = append(points, part.sorted(start, end, 0)...)
		}
		slices.SortFunc(points, func(a, b series.Point) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
		if s.pageSize > 0 && len(points) > s.pageSize {
			points = points[:s.pageSize]
		}
		writeXDR(w, http.StatusOK, wire.EncodeTimeSeriesData(points))

	case len(sub) == 1 && sub[0] == "partitions" && r.Method == http.MethodGet:
		if len(ch.timeSeries) == 0 {
			writeError(w, http.StatusNotFound, errs.CodeTimeSeriesNotFound, "no time-series data")
			return
		}
		parts := make([]series.Partition, 0, len(ch.timeSeries))
		for _, descriptor := range slices.Sorted(maps.Keys(ch.timeSeries)) {
			part := ch.timeSeries[descriptor]
			start, end := part.bounds()
			parts = append(parts, series.Partition{
				Kind:       format.StreamTimeSeries,
				Descriptor: descriptor,
				Start:      start,
				End:        end,
				SampleRate: part.rate,
			})
		}
		writeXDR(w, http.StatusOK, wire.EncodePartitionListing(format.StreamTimeSeries, parts))

	default:
		writeError(w, http.StatusNotFound, "404-000", "unknown resource")
	}
}

func (s *Server) histogramResource(w http.ResponseWriter, r *http.Request, ch *channel, sub []string, body []byte) {
	switch {
	case len(sub) == 0 && r.Method == http.MethodGet:
		if len(ch.histograms) == 0 {
			writeError(w, http.StatusNotFound, errs.CodeHistogramNotFound, "no histogram data")
			return
		}
		info := series.StreamInfo{Kind: format.StreamHistogram, Start: ^uint64(0)}
		for _, part := range ch.histograms {
			start, end := part.bounds()
			info.Start = min(info.Start, start)
			info.End = max(info.End, end)
		}
		writeXDR(w, http.StatusOK, wire.EncodeStreamInfo(info))

	case len(sub) == 1 && sub[0] == "data" && r.Method == http.MethodPost:
		rate, hists, err := wire.DecodeHistogramBatch(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "400-001", err.Error())
			return
		}
		if len(hists) == 0 {
			w.WriteHeader(http.StatusCreated)
			return
		}
		shape := hists[0].Shape()
		descriptor := series.HistogramDescriptor(rate, shape)
		part, ok := ch.histograms[descriptor]
		if !ok {
			part = &histPartition{rate: rate, shape: shape, hists: make(map[uint64]series.Histogram)}
			ch.histograms[descriptor] = part
		}
		for _, h := range hists {
			part.hists[h.Timestamp] = h
		}
		w.WriteHeader(http.StatusCreated)

	case len(sub) == 2 && sub[0] == "data" && sub[1] == "latest" && r.Method == http.MethodGet:
		var (
			latest series.Histogram
			found  bool
		)
		for _, part := range ch.histograms {
			for _, h := range part.hists {
				if !found || h.Timestamp > latest.Timestamp {
					latest, found = h, true
				}
			}
		}
		if !found {
			writeError(w, http.StatusNotFound, errs.CodeHistogramNotFound, "no histogram data")
			return
		}
		writeXDR(w, http.StatusOK, wire.EncodeHistogram(latest))

	case len(sub) == 1 && sub[0] == "partitions" && r.Method == http.MethodGet:
		if len(ch.histograms) == 0 {
			writeError(w, http.StatusNotFound, errs.CodeHistogramNotFound, "no histogram data")
			return
		}
		parts := make([]series.Partition, 0, len(ch.histograms))
		for _, descriptor := range slices.Sorted(maps.Keys(ch.histograms)) {
			part := ch.histograms[descriptor]
			start, end := part.bounds()
			parts = append(parts, series.Partition{
				Kind:       format.StreamHistogram,
				Descriptor: descriptor,
				Start:      start,
				End:        end,
				SampleRate: part.rate,
				Shape:      part.shape,
			})
		}
		writeXDR(w, http.StatusOK, wire.EncodePartitionListing(format.StreamHistogram, parts))

	default:
		writeError(w, http.StatusNotFound, "404-000", "unknown resource")
	}
}

func timeRange(r *http.Request) (start, end uint64, ok bool) {
	q := r.URL.Query()
	start, err := strconv.ParseUint(q.Get("startTime"), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	end, err = strconv.ParseUint(q.Get("endTime"), 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}

	return start, end, true
}

func (p *tsPartition) bounds() (start, end uint64) {
	start = ^uint64(0)
	for ts := range p.points {
		start = min(start, ts)
		end = max(end, ts)
	}

	return start, end
}

// sorted returns the points in [start, end], at most limit of them when limit
// is positive.
func (p *tsPartition) sorted(start, end uint64, limit int) []series.Point {
	out := make([]series.Point, 0, len(p.points))
	for ts, v := range p.points {
		if ts >= start && ts <= end {
			out = append(out, series.Point{Timestamp: ts, Value: v})
		}
	}
	slices.SortFunc(out, func(a, b series.Point) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out
}

func (p *histPartition) bounds() (start, end uint64) {
	start = ^uint64(0)
	for ts := range p.hists {
		start = min(start, ts)
		end = max(end, ts)
	}

	return start, end
}

func (p *histPartition) sorted() []series.Histogram {
	out := make([]series.Histogram, 0, len(p.hists))
	for _, h := range p.hists {
		out = append(out, h)
	}
	sortHistograms(out)

	return out
}

func sortHistograms(hists []series.Histogram) {
	slices.SortFunc(hists, func(a, b series.Histogram) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
}

func writeXDR(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", format.ContentTypeXDR)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
