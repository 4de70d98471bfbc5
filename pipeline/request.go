package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/format"
)

// Request describes one logical call against a device resource. It is built
// with the chaining methods and executed with Get, Put, Post or Delete. A
// Request may be executed more than once; each execution is independent.
type Request struct {
	p            *Pipeline
	path         string
	query        url.Values
	header       http.Header
	body         []byte
	interceptors []Interceptor
}

func newRequest(p *Pipeline, path string) *Request {
	query := url.Values{}
	query.Set("version", format.APIVersion)

	return &Request{
		p:      p,
		path:   path,
		query:  query,
		header: http.Header{},
	}
}

// Path returns the device-relative path of the request.
func (r *Request) Path() string {
	return r.path
}

// Param sets a query parameter.
func (r *Request) Param(key, value string) *Request {
	r.query.Set(key, value)
	return r
}

// ParamUint sets a decimal query parameter.
func (r *Request) ParamUint(key string, value uint64) *Request {
	return r.Param(key, strconv.FormatUint(value, 10))
}

// Header sets a request header.
func (r *Request) Header(key, value string) *Request {
	r.header.Set(key, value)
	return r
}

// Accept sets the Accept header.
func (r *Request) Accept(contentType string) *Request {
	return r.Header("Accept", contentType)
}

// ContentType sets the Content-Type header.
func (r *Request) ContentType(contentType string) *Request {
	return r.Header("Content-Type", contentType)
}

// Body sets the request body. The slice is not copied.
func (r *Request) Body(body []byte) *Request {
	r.body = body
	return r
}

// Intercept appends interceptors to the chain. The first interceptor added
// sees the response first.
func (r *Request) Intercept(interceptors ...Interceptor) *Request {
	for _, ic := range interceptors {
		if ic != nil {
			r.interceptors = append(r.interceptors, ic)
		}
	}

	return r
}

// Get executes the request with GET.
func (r *Request) Get(ctx context.Context) (*Response, error) {
	return r.Do(ctx, http.MethodGet)
}

// Put executes the request with PUT.
func (r *Request) Put(ctx context.Context) (*Response, error) {
	return r.Do(ctx, http.MethodPut)
}

// Post executes the request with POST.
func (r *Request) Post(ctx context.Context) (*Response, error) {
	return r.Do(ctx, http.MethodPost)
}

// Delete executes the request with DELETE.
func (r *Request) Delete(ctx context.Context) (*Response, error) {
	return r.Do(ctx, http.MethodDelete)
}

// Do executes the request with the given method and returns the final
// response. Non-2xx responses are not errors at this level; use
// Response.Expect. The returned error is non-nil only when the exchange could
// not be completed, authentication failed, or an interceptor failed.
//
// A 401 triggers one reauthentication and replay when enabled. Each
// interceptor may trigger at most one replay; afterwards it is skipped for the
// rest of the call.
func (r *Request) Do(ctx context.Context, method string) (*Response, error) {
	p := r.p
	op := method + " " + r.path
	requestID := uuid.NewString()

	header := r.header.Clone()
	header.Set("User-Agent", p.cfg.UserAgent)
	body, err := r.encodeBody(header)
	if err != nil {
		return nil, fmt.Errorf("sensorcloud: %s: %w", op, err)
	}

	reauthenticated := false
	replayed := make([]bool, len(r.interceptors))

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		session, err := p.ensureSession(ctx)
		if err != nil {
			return nil, err
		}

		query := cloneValues(r.query)
		query.Set("auth_token", session.Token)

		resp, err := p.roundTrip(ctx, exchange{
			op:        op,
			method:    method,
			url:       session.DeviceURL() + r.path,
			query:     query,
			header:    header,
			body:      body,
			requestID: requestID,
		})
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusUnauthorized && p.cfg.Reauthenticate && !reauthenticated {
			reauthenticated = true
			p.cfg.Logger.Info("session rejected, reauthenticating",
				"device_id", p.cfg.DeviceID,
				"op", op,
				"request_id", requestID,
			)
			if err := p.Authenticate(ctx); err != nil {
				return nil, err
			}
			p.cfg.Observer.ObserveReplay(ReplayReauthenticate)

			continue
		}

		replay, err := r.intercept(ctx, resp, replayed)
		if err != nil {
			return nil, err
		}
		if !replay {
			return resp, nil
		}

		p.cfg.Observer.ObserveReplay(ReplayInterceptor)
		p.cfg.Logger.Debug("replaying request", "op", op, "request_id", requestID)
	}
}

// intercept runs the chain over resp and reports whether the request must be
// replayed.
func (r *Request) intercept(ctx context.Context, resp *Response, replayed []bool) (bool, error) {
	for i, ic := range r.interceptors {
		if replayed[i] {
			continue
		}

		verdict, err := ic.Handle(ctx, resp)
		if err != nil {
			return false, err
		}

		switch verdict {
		case Replay:
			replayed[i] = true
			return true, nil
		case Stop:
			return false, nil
		}
	}

	return false, nil
}

// encodeBody compresses the body once per call when compression is enabled,
// the body reaches the threshold and the result is smaller.
func (r *Request) encodeBody(header http.Header) ([]byte, error) {
	cfg := r.p.cfg
	if len(r.body) == 0 || cfg.Compression == format.CompressionNone || len(r.body) < cfg.CompressionThreshold {
		return r.body, nil
	}

	codec, err := compress.GetCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	compressed, stats, err := compress.CompressWithStats(codec, cfg.Compression, r.body)
	if err != nil {
		return nil, err
	}
	cfg.Observer.ObserveCompression(stats)

	if !stats.Beneficial() {
		return r.body, nil
	}
	header.Set("Content-Encoding", cfg.Compression.ContentEncoding())

	return compressed, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+1)
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}

	return out
}
