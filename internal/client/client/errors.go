package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// APIError is a non-2xx response, or a 2xx one whose envelope reports failure.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsConflict reports whether err is a 409 from the backend.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

func mapStatus(code int, env *envelope) error {
	msg := ""
	if env != nil {
		msg = env.Message
		if msg == "" {
			msg = env.Error
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", code)
	}

	apiErr := &APIError{StatusCode: code, Message: msg}
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		apiErr.Err = ErrUnauthorized
	case code == http.StatusNotFound:
		apiErr.Err = ErrNotFound
	case code >= 500:
		apiErr.Err = ErrUnavailable
	}
	return apiErr
}
