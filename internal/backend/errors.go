package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthError indicates that the credential exchange was rejected or that a
// request still received 401 after a fresh login
type AuthError struct {
	StatusCode int
	Message    string
}

func (err *AuthError) Error() string {
	if err.Message != "" {
		return fmt.Sprintf("authentication failed (%d): %s", err.StatusCode, err.Message)
	}
	return fmt.Sprintf("authentication failed (%d)", err.StatusCode)
}

// NetworkError indicates a transport-level failure (connection refused, DNS,
// timeout below the HTTP layer)
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (err *NetworkError) Error() string {
	return fmt.Sprintf("network error on %s %s: %v", err.Op, err.URL, err.Err)
}

func (err *NetworkError) Unwrap() error {
	return err.Err
}

// FieldError represents a single structured field error of a validation failure
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ValidationError indicates that the backend rejected a request body with
// per-field detail (HTTP 422)
type ValidationError struct {
	Fields []FieldError
}

func (err *ValidationError) Error() string {
	if len(err.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(err.Fields))
	for _, field := range err.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field.Path, field.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// APIError represents any other non-2xx response of the backend
type APIError struct {
	StatusCode int
	Body       string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("unexpected API response (%d): %s", err.StatusCode, err.Body)
}

// IsServerError returns whether the response indicates a server-side (5xx) condition
func (err *APIError) IsServerError() bool {
	return err.StatusCode >= 500
}

// TaskTimeoutError indicates that a long-running task did not reach a terminal
// status before the polling ceiling elapsed.
// The task itself may still be running on the backend; this is explicitly not
// a business failure of the task.
type TaskTimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (err *TaskTimeoutError) Error() string {
	return fmt.Sprintf("task %s did not finish within %s", err.Path, err.Timeout)
}

// ClientError wraps an unexpected failure inside the client (malformed
// response body, request building) so that callers outside the module never
// see a raw transport or codec error
type ClientError struct {
	Op  string
	Err error
}

func (err *ClientError) Error() string {
	return fmt.Sprintf("client error during %s: %v", err.Op, err.Err)
}

func (err *ClientError) Unwrap() error {
	return err.Err
}

// IsNotFound returns whether the given error is a 404 API response
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// validationDetail mirrors the backend's 422 payload
type validationDetail struct {
	Detail []struct {
		Loc  []interface{} `json:"loc"`
		Msg  string        `json:"msg"`
		Type string        `json:"type"`
	} `json:"detail"`
}

// parseValidationError builds a ValidationError out of a raw 422 response body.
// If the body does not match the expected structure, the raw body is carried
// as a single field-less message instead of being discarded.
func parseValidationError(body []byte) *ValidationError {
	detail := new(validationDetail)
	if err := json.Unmarshal(body, detail); err != nil || len(detail.Detail) == 0 {
		return &ValidationError{Fields: []FieldError{{Message: strings.TrimSpace(string(body))}}}
	}

	fields := make([]FieldError, 0, len(detail.Detail))
	for _, entry := range detail.Detail {
		segments := make([]string, 0, len(entry.Loc))
		for _, loc := range entry.Loc {
			segments = append(segments, fmt.Sprintf("%v", loc))
		}
		fields = append(fields, FieldError{
			Path:    strings.Join(segments, "."),
			Message: entry.Msg,
			Type:    entry.Type,
		})
	}
	return &ValidationError{Fields: fields}
}
