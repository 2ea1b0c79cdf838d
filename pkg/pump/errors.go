package pump

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnreachable matches any failure to get a successful response
	// from the Pump service: transport errors and non-2xx statuses.
	ErrServiceUnreachable = errors.New("pump service unreachable")

	// ErrInvalidJobResponse matches a response that carries no jobId.
	ErrInvalidJobResponse = errors.New("invalid job response")
)

// APIError is a non-2xx response from the Pump service.
type APIError struct {
	HTTPStatus int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s", e.HTTPStatus, e.Message)
}

// ServiceUnreachableError records which operation could not reach the service.
type ServiceUnreachableError struct {
	Op  string
	URL string
	Err error
}

func (e *ServiceUnreachableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *ServiceUnreachableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrServiceUnreachable) hold.
func (e *ServiceUnreachableError) Is(target error) bool {
	return target == ErrServiceUnreachable
}

// InvalidJobResponseError carries the offending payload.
type InvalidJobResponseError struct {
	Op      string
	Payload string
}

func (e *InvalidJobResponseError) Error() string {
	return fmt.Sprintf("%s: invalid job: response has no jobId: %s", e.Op, truncate(e.Payload, 200))
}

// Is makes errors.Is(err, ErrInvalidJobResponse) hold.
func (e *InvalidJobResponseError) Is(target error) bool {
	return target == ErrInvalidJobResponse
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
