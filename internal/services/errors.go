package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNetwork       = errors.New("network error")
	ErrStatus        = errors.New("unexpected status")
	ErrDecode        = errors.New("decode error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes service context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, service, operation, message string, err error) error {
	detail := buildDetail(service, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRemoteFailure reports whether err came from a remote API call, whatever
// the transport-level cause was. Callers treat all of them as "operation
// failed, state unchanged".
func IsRemoteFailure(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrStatus) || errors.Is(err, ErrDecode)
}

// StatusError carries the HTTP status of a non-success API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if body := strings.TrimSpace(e.Body); body != "" {
		return fmt.Sprintf("status %d: %s", e.Code, body)
	}
	return fmt.Sprintf("status %d", e.Code)
}

func buildDetail(service, operation, message string) string {
	parts := make([]string, 0, 3)
	if service = strings.TrimSpace(service); service != "" {
		parts = append(parts, service)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
