package pipeline

import (
	"net/http"
	"slices"
	"time"

	"github.com/sensorcloud-go/sensorcloud/errs"
)

// ServerError is the structured error body the service returns with most
// failures: {"errorcode": "404-001", "message": "..."}.
type ServerError struct {
	Code    string
	Message string
}

// Response is a completed HTTP exchange. Every field is populated once when
// the response is read.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	// Body is the complete, decoded response body.
	Body []byte
	// ServerError is set for statuses >= 400 whose body carried a
	// structured error.
	ServerError *ServerError
	Duration    time.Duration
	// RequestID is shared by a call and all of its replays.
	RequestID string
}

// Code returns the structured server error code, or "" if there is none.
func (r *Response) Code() string {
	if r.ServerError == nil {
		return ""
	}

	return r.ServerError.Code
}

// HasCode reports whether r failed with the given status and server error code.
func (r *Response) HasCode(status int, code string) bool {
	return r.StatusCode == status && r.Code() == code
}

// Expect returns nil if r has one of the expected statuses and an *errs.APIError
// describing r otherwise.
func (r *Response) Expect(op string, expected ...int) error {
	if slices.Contains(expected, r.StatusCode) {
		return nil
	}

	return r.Err(op)
}

// Err converts r into an *errs.APIError regardless of its status.
func (r *Response) Err(op string) error {
	apiErr := &errs.APIError{
		Op:         op,
		StatusCode: r.StatusCode,
		Status:     r.Status,
	}
	if r.ServerError != nil {
		apiErr.Code = r.ServerError.Code
		apiErr.Message = r.ServerError.Message
	} else {
		apiErr.Body = truncate(string(r.Body), 512)
	}

	return apiErr
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
