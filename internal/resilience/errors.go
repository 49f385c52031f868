package resilience

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrServiceUnavailable matches every UnavailableError via errors.Is
var ErrServiceUnavailable = errors.New("external service unavailable")

// UnavailableError is returned once an external call has used up its attempts
type UnavailableError struct {
	Service   string // kb, datetag, wikipedia, llm
	Operation string // e.g. search_space, frequency
	Attempts  int
	Err       error // Last error seen
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s unavailable after %d attempts: %v", e.Service, e.Operation, e.Attempts, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrServiceUnavailable) hold
func (e *UnavailableError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// PermanentError marks a failure that retrying cannot fix (bad request, decode error)
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so that Do stops retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// StatusError turns a non-2xx HTTP status into an error. Statuses that may
// clear up on their own stay retryable, the rest are permanent.
func StatusError(service string, status int) error {
	err := fmt.Errorf("%s returned HTTP %d", service, status)
	if IsTransientHTTPStatus(status) {
		return err
	}
	return Permanent(err)
}

// IsTransientHTTPStatus returns true for statuses worth retrying
func IsTransientHTTPStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
