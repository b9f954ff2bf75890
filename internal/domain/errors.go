package domain

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the test management API. Message is
// the server's own explanation and is shown to users verbatim.
type APIError struct {
	Status         int
	Method         string
	Path           string
	Message        string
	TestCaseStatus string
	Body           string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("api error (%d) %s %s: %s", e.Status, e.Method, e.Path, msg)
}

// ClosedCase reports whether the API rejected an execution because the test
// case is already closed.
func (e *APIError) ClosedCase() bool {
	return strings.EqualFold(e.TestCaseStatus, string(CaseClosed))
}

// MessageOr returns the server-provided message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

func IsClosedCase(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.ClosedCase()
}

// StatusCode returns the HTTP status of an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
