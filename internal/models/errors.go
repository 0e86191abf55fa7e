package models

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable label for pipeline failures. Also used as a metric label.
type ErrorKind string

const (
	ErrorKindInvalidDate      ErrorKind = "invalid_date"
	ErrorKindTransport        ErrorKind = "transport"
	ErrorKindHTTPStatus       ErrorKind = "http_status"
	ErrorKindDecode           ErrorKind = "decode"
	ErrorKindUpstreamExplicit ErrorKind = "upstream_explicit"
	ErrorKindUnexpected       ErrorKind = "unexpected"
)

// PipelineError is the single failure type surfaced to the formatter.
// Message is human-readable and unescaped.
type PipelineError struct {
	Kind       ErrorKind
	StatusCode int    // set for ErrorKindHTTPStatus
	Input      string // set for ErrorKindInvalidDate
	Message    string
	Err        error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewInvalidDateError(input string, err error) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindInvalidDate,
		Input:   input,
		Message: fmt.Sprintf("Invalid date format: '%s'. Please use DD-MM-YYYY (e.g., 13-12-2025).", input),
		Err:     err,
	}
}

func NewTransportError(err error) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindTransport,
		Message: "API request failed: Check network or API service status.",
		Err:     err,
	}
}

// NewHTTPStatusError keeps the numeric status in Message so operators can tell
// entitlement (403) from auth or availability problems.
func NewHTTPStatusError(code int) *PipelineError {
	msg := fmt.Sprintf("API returned HTTP %d.", code)
	switch code {
	case 401:
		msg = fmt.Sprintf("API returned HTTP %d: the API key was rejected.", code)
	case 403:
		msg = fmt.Sprintf("API returned HTTP %d: the API key is not entitled to this endpoint.", code)
	case 429:
		msg = fmt.Sprintf("API returned HTTP %d: rate limit reached, try again later.", code)
	}
	return &PipelineError{Kind: ErrorKindHTTPStatus, StatusCode: code, Message: msg}
}

func NewDecodeError(err error) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindDecode,
		Message: "Failed to decode the Panchang data from the API response.",
		Err:     err,
	}
}

func NewUpstreamError(message string) *PipelineError {
	if message == "" {
		message = "The Panchang API reported an error."
	}
	return &PipelineError{Kind: ErrorKindUpstreamExplicit, Message: message}
}

func NewUnexpectedError(err error) *PipelineError {
	return &PipelineError{
		Kind:    ErrorKindUnexpected,
		Message: "An unexpected error occurred during API fetch.",
		Err:     err,
	}
}

// AsPipelineError returns err as a *PipelineError, classifying anything else as unexpected.
func AsPipelineError(err error) *PipelineError {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}
	return NewUnexpectedError(err)
}
