// Package errs defines the error taxonomy shared by every sensorcloud package.
//
// Callers test the category of a failure with errors.Is against the sentinel
// values and extract details with errors.As:
//
//	var apiErr *errs.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == errs.CodeQuotaExceeded { ... }
//
// An *APIError matches the sentinel for its HTTP status class, so a quota
// failure matches both ErrQuotaExceeded and ErrUnauthorized.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport marks connection, DNS and TLS failures. Never retried.
	ErrTransport = errors.New("transport failure")
	// ErrServer marks HTTP 5xx responses.
	ErrServer = errors.New("server error")
	// ErrUnauthorized marks HTTP 401 responses that reauthentication did not resolve.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrQuotaExceeded marks the 401 the service returns when the device is over quota.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrUser marks HTTP 4xx responses other than 401.
	ErrUser = errors.New("request rejected")
	// ErrNotFound marks a 404 that was not recovered by auto-provisioning.
	ErrNotFound = errors.New("not found")
	// ErrFormat marks a malformed binary payload.
	ErrFormat = errors.New("malformed payload")
	// ErrValidation marks a violated local precondition; no request was sent.
	ErrValidation = errors.New("invalid argument")
)

// Structured error codes returned by the service in the "errorcode" field.
const (
	CodeUnauthorized       = "401-001"
	CodeQuotaExceeded      = "401-005"
	CodeSensorNotFound     = "404-001"
	CodeChannelNotFound    = "404-002"
	CodeTimeSeriesNotFound = "404-003"
	CodeHistogramNotFound  = "404-010"
	CodeConflict           = "409-001"
)

// APIError is a non-success HTTP response from the service.
type APIError struct {
	// Op names the client operation that failed, e.g. "add sensor".
	Op string
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Status is the reason phrase, e.g. "404 Not Found".
	Status string
	// Code is the structured server error code ("404-001"), empty when the
	// body carried none.
	Code string
	// Message is the server's human-readable message.
	Message string
	// Body is the raw response body when no structured error was present.
	Body string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sensorcloud: %s: %s (%d): %s", e.Op, e.Code, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("sensorcloud: %s: %s: %s", e.Op, e.statusText(), e.Body)
}

func (e *APIError) statusText() string {
	if e.Status != "" {
		return e.Status
	}

	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports whether the error belongs to the category named by target.
func (e *APIError) Is(target error) bool {
	switch target { //nolint:errorlint // sentinel identity comparison
	case ErrQuotaExceeded:
		return e.StatusCode == http.StatusUnauthorized && e.Code == CodeQuotaExceeded
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrServer:
		return e.StatusCode >= http.StatusInternalServerError
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUser:
		return e.StatusCode >= http.StatusBadRequest &&
			e.StatusCode < http.StatusInternalServerError &&
			e.StatusCode != http.StatusUnauthorized
	default:
		return false
	}
}

// TransportError wraps a failure to complete the HTTP exchange at all.
type TransportError struct {
	Op     string
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sensorcloud: %s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport //nolint:errorlint // sentinel identity comparison
}

// HasCode reports whether err is an *APIError carrying the given server code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}

	return false
}

// Formatf returns an error wrapping ErrFormat.
func Formatf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormat, fmt.Sprintf(format, args...))
}

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
