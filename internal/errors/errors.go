// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoData           = errors.New("no data")
	ErrTimeout          = errors.New("operation timed out")
	ErrConnectionFailed = errors.New("connection failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrNumericDomain    = errors.New("input outside numeric domain")
)

// UpstreamError represents a response from the quote API that arrived but
// was not usable: a non-success status or a malformed payload.
type UpstreamError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error [%s] status %q: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error [%s] status %q", e.Endpoint, e.Status)
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(endpoint, status, message string) *UpstreamError {
	return &UpstreamError{Endpoint: endpoint, Status: status, Message: message}
}

// FetchError represents a transport-level failure talking to the quote API.
type FetchError struct {
	Endpoint string
	Key      string
	Err      error
}

func (e *FetchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("fetch error [%s] %s: %v", e.Endpoint, e.Key, e.Err)
	}
	return fmt.Sprintf("fetch error [%s]: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError.
func NewFetchError(endpoint, key string, err error) *FetchError {
	return &FetchError{Endpoint: endpoint, Key: key, Err: err}
}

// DataError represents a data-related error for one underlying.
type DataError struct {
	DataType string
	Name     string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Name, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Name, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, name, message string, err error) *DataError {
	return &DataError{DataType: dataType, Name: name, Message: message, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message.
func New(message string) error {
	return errors.New(message)
}
