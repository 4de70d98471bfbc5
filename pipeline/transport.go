package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sensorcloud-go/sensorcloud/compress"
	"github.com/sensorcloud-go/sensorcloud/errs"
)

// exchange is one fully resolved HTTP exchange.
type exchange struct {
	op        string
	method    string
	url       string
	query     url.Values
	header    http.Header
	body      []byte
	requestID string
}

// roundTrip performs ex and returns the populated Response. Only failures to
// complete the exchange are returned as errors.
func (p *Pipeline) roundTrip(ctx context.Context, ex exchange) (*Response, error) {
	target := ex.url
	if len(ex.query) > 0 {
		target += "?" + ex.query.Encode()
	}

	var body io.Reader
	if ex.body != nil {
		body = bytes.NewReader(ex.body)
	}
	req, err := http.NewRequestWithContext(ctx, ex.method, target, body)
	if err != nil {
		return nil, &errs.TransportError{Op: ex.op, Method: ex.method, URL: ex.url, Err: err}
	}
	for name, values := range ex.header {
		req.Header[name] = values
	}
	req.Header.Set("X-Request-Id", ex.requestID)

	started := time.Now()
	httpResp, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		err = stripURL(err)
		p.observeRequest(ex.method, 0, started)
		p.cfg.Logger.Debug("sensorcloud request failed",
			"op", ex.op,
			"method", ex.method,
			"url", ex.url,
			"request_id", ex.requestID,
			"error", err,
		)

		return nil, &errs.TransportError{Op: ex.op, Method: ex.method, URL: ex.url, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseSize))
	if err != nil {
		p.observeRequest(ex.method, 0, started)
		return nil, &errs.TransportError{Op: ex.op, Method: ex.method, URL: ex.url, Err: fmt.Errorf("reading response body: %w", err)}
	}
	duration := time.Since(started)
	p.cfg.Observer.ObserveRequest(ex.method, httpResp.StatusCode, duration)

	resp := &Response{
		Method:     ex.method,
		URL:        ex.url,
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       raw,
		Duration:   duration,
		RequestID:  ex.requestID,
	}

	if encoding := httpResp.Header.Get("Content-Encoding"); encoding != "" && encoding != "identity" && len(raw) > 0 {
		codec, _, ok := compress.ForContentEncoding(encoding)
		if !ok {
			return nil, fmt.Errorf("sensorcloud: %s: %w: unsupported response content encoding %q", ex.op, errs.ErrFormat, encoding)
		}
		decoded, err := codec.Decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("sensorcloud: %s: %w: %w", ex.op, errs.ErrFormat, err)
		}
		resp.Body = decoded
	}

	if resp.StatusCode >= http.StatusBadRequest {
		resp.ServerError = parseServerError(resp.Body)
	}

	p.cfg.Logger.Debug("sensorcloud request",
		"op", ex.op,
		"method", ex.method,
		"url", ex.url,
		"status", resp.StatusCode,
		"duration", duration,
		"request_id", ex.requestID,
	)

	return resp, nil
}

// stripURL drops the request URL from client errors; its query carries the
// session token.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}

	return err
}

// parseServerError extracts the structured error of a failed response, or nil
// when the body carries none.
func parseServerError(body []byte) *ServerError {
	if len(body) == 0 {
		return nil
	}

	var se struct {
		Code    string `json:"errorcode"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &se); err != nil || se.Code == "" {
		return nil
	}

	return &ServerError{Code: se.Code, Message: se.Message}
}
