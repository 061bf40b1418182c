package moodle

import (
	"errors"
	"fmt"
)

// TransportError indicates the request never produced a usable response:
// a network failure, a timeout, or a non-2xx status.
type TransportError struct {
	URL        string // token redacted
	StatusCode int    // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError indicates a response body that does not match the expected schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unexpected response from Moodle: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError is a Moodle exception payload, which the web service returns
// with HTTP 200 (for example an invalid or expired token).
type APIError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("moodle error (%s): %s", e.ErrorCode, e.Message)
}

// IsTransport reports whether err (or any error in its chain) is a TransportError.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// IsDecode reports whether err (or any error in its chain) is a DecodeError.
func IsDecode(err error) bool {
	var decodeErr *DecodeError
	return errors.As(err, &decodeErr)
}

// IsAPI reports whether err (or any error in its chain) is an APIError.
func IsAPI(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsInvalidToken reports whether err is Moodle rejecting the token.
func IsInvalidToken(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == "invalidtoken"
	}
	return false
}
