// Package fakecloud is an in-memory SensorCloud service for tests and demos.
//
// It implements authentication, sensor and channel management, time-series
// and histogram uploads, downloads, partition listings and the structured
// error codes of the real service, on top of an httptest.Server. Every API
// call is recorded so tests can assert on exact request sequences.
package fakecloud

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/series"
	"github.com/sensorcloud-go/sensorcloud/wire"
)

// DefaultPageSize is the maximum number of points returned by one download.
const DefaultPageSize = 50000

// Call is one recorded API request. Authentication calls are recorded with
// Path "authenticate".
type Call struct {
	Method string
	Path   string
	Status int
}

// String renders the call as "PUT /sensors/imu/".
func (c Call) String() string {
	return c.Method + " " + c.Path
}

type channel struct {
	label       string
	description string
	timeSeries  map[string]*tsPartition
	histograms  map[string]*histPartition
}

type tsPartition struct {
	rate   series.SampleRate
	points map[uint64]float32
}

type histPartition struct {
	rate  series.SampleRate
	shape series.HistogramShape
	hists map[uint64]series.Histogram
}

type sensor struct {
	sensorType  string
	label       string
	description string
	channels    map[string]*channel
}

type fault struct {
	status int
	code   string
}

// Server is a fake SensorCloud service for one device.
type Server struct {
	srv *httptest.Server

	deviceID  string
	deviceKey string

	mu       sync.Mutex
	tokenSeq int
	tokens   map[string]bool
	sensors  map[string]*sensor
	calls    []Call
	apiCalls int
	faults   map[int]fault
	pageSize int
}

// New starts a fake service accepting deviceID with deviceKey. Close it when
// done.
func New(deviceID, deviceKey string) *Server {
	s := &Server{
		deviceID:  deviceID,
		deviceKey: deviceKey,
		tokens:    make(map[string]bool),
		sensors:   make(map[string]*sensor),
		faults:    make(map[int]fault),
		pageSize:  DefaultPageSize,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serveHTTP))

	return s
}

// URL is the base URL of the service, used both as auth and API server.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns an HTTP client for the service.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Close shuts the service down.
func (s *Server) Close() {
	s.srv.Close()
}

// Calls returns the API calls made so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

// ResetCalls forgets the recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
}

// SetPageSize limits the number of points returned by one download.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pageSize = n
}

// ExpireTokens invalidates every issued token, so the next API call is
// answered with 401.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.tokens)
}

// FailNext makes the next API call fail with status and, if not empty, the
// structured error code.
func (s *Server) FailNext(status int, code string) {
	s.FailAfter(0, status, code)
}

// FailAfter lets n API calls pass and makes the one after them fail with
// status and, if not empty, the structured error code. Authentication calls
// are not counted.
func (s *Server) FailAfter(n int, status int, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.faults[s.apiCalls+n] = fault{status: status, code: code}
}

// AddSensor creates a sensor directly.
func (s *Server) AddSensor(name, sensorType, label, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sensors[name] = &sensor{
		sensorType:  sensorType,
		label:       label,
		description: description,
		channels:    make(map[string]*channel),
	}
}

// AddChannel creates a channel directly. The sensor must exist.
func (s *Server) AddChannel(sensorName, name, label, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sensors[sensorName].channels[name] = newChannel(label, description)
}

// HasSensor reports whether the sensor exists.
func (s *Server) HasSensor(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sensors[name]

	return ok
}

// HasChannel reports whether the channel exists.
func (s *Server) HasChannel(sensorName, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sn, ok := s.sensors[sensorName]
	if !ok {
		return false
	}
	_, ok = sn.channels[name]

	return ok
}

// Points returns the stored points of one time-series partition sorted by
// timestamp.
func (s *Server) Points(sensorName, channelName string, rate series.SampleRate) []series.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channelLocked(sensorName, channelName)
	if ch == nil {
		return nil
	}
	part, ok := ch.timeSeries[series.TimeSeriesDescriptor(rate)]
	if !ok {
		return nil
	}

	return part.sorted(0, ^uint64(0), 0)
}

// Histograms returns the stored histograms of a channel sorted by timestamp.
func (s *Server) Histograms(sensorName, channelName string) []series.Histogram {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := s.channelLocked(sensorName, channelName)
	if ch == nil {
		return nil
	}

	var out []series.Histogram
	for _, part := range ch.histograms {
		out = append(out, part.sorted()...)
	}
	sortHistograms(out)

	return out
}

func newChannel(label, description string) *channel {
	return &channel{
		label:       label,
		description: description,
		timeSeries:  make(map[string]*tsPartition),
		histograms:  make(map[string]*histPartition),
	}
}

func (s *Server) channelLocked(sensorName, channelName string) *channel {
	sn, ok := s.sensors[sensorName]
	if !ok {
		return nil
	}

	return sn.channels[channelName]
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	prefix := "/SensorCloud/devices/" + s.deviceID + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := "/" + strings.TrimPrefix(r.URL.Path, prefix)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	if rest == "/authenticate/" {
		s.authenticate(rec, r)
		s.calls = append(s.calls, Call{Method: r.Method, Path: "authenticate", Status: rec.status})

		return
	}
	defer func() {
		s.calls = append(s.calls, Call{Method: r.Method, Path: rest, Status: rec.status})
	}()

	idx := s.apiCalls
	s.apiCalls++
	if !s.tokens[r.URL.Query().Get("auth_token")] {
		writeError(rec, http.StatusUnauthorized, "401-001", "invalid auth token")
		return
	}
	if f, ok := s.faults[idx]; ok {
		delete(s.faults, idx)
		if f.code != "" {
			writeError(rec, f.status, f.code, "injected fault")
		} else {
			rec.WriteHeader(f.status)
		}

		return
	}

	body, err := readBody(r)
	if err != nil {
		writeError(rec, http.StatusBadRequest, "400-001", err.Error())
		return
	}

	s.route(rec, r, rest, body)
}

func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("key") != s.deviceKey {
		writeError(w, http.StatusUnauthorized, "401-001", "invalid device key")
		return
	}

	s.tokenSeq++
	token := fmt.Sprintf("token-%d", s.tokenSeq)
	s.tokens[token] = true

	writeXDR(w, http.StatusOK, wire.EncodeAuthResponse(wire.AuthResponse{
		Token:  token,
		Server: strings.TrimPrefix(s.srv.URL, "http://"),
	}))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	if encoding := r.Header.Get("Content-Encoding"); encoding != "" && len(body) > 0 {
		codec, _, ok := compress.ForContentEncoding(encoding)
		if !ok {
			return nil, fmt.Errorf("unsupported content encoding %q", encoding)
		}

		return codec.Decompress(body)
	}

	return body, nil
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"errorcode":%q,"message":%q}`, code, message)
}
