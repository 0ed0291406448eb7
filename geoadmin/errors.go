// Copyright 2025 The GEOSAN Authors
// SPDX-License-Identifier: Apache-2.0

package geoadmin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType classifies a failed search.
type ErrorType int

const (
	// ErrorTypeUnknown is any other failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit is an HTTP 429.
	ErrorTypeRateLimit
	// ErrorTypeForbidden is an HTTP 403.
	ErrorTypeForbidden
	// ErrorTypeTimeout is a client or gateway timeout.
	ErrorTypeTimeout
	// ErrorTypeInvalidRequest is an HTTP 400.
	ErrorTypeInvalidRequest
	// ErrorTypeUnavailable is a 5xx or a transport failure.
	ErrorTypeUnavailable
	// ErrorTypeDecode is an unreadable response body.
	ErrorTypeDecode
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeForbidden:
		return "forbidden"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeInvalidRequest:
		return "invalid_request"
	case ErrorTypeUnavailable:
		return "unavailable"
	case ErrorTypeDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is a failed call to the search service.
type Error struct {
	Type       ErrorType
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later.
func (e *Error) Retryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeUnavailable:
		return true
	default:
		return false
	}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}

// IsRateLimitError reports whether err is an HTTP 429.
func IsRateLimitError(err error) bool {
	return isType(err, ErrorTypeRateLimit)
}

// IsTimeoutError reports whether err is a timeout.
func IsTimeoutError(err error) bool {
	return isType(err, ErrorTypeTimeout)
}

// IsUnavailableError reports whether the service could not be reached.
func IsUnavailableError(err error) bool {
	return isType(err, ErrorTypeUnavailable)
}

// ClassifyHTTPError maps a non-2xx status to an Error.
func ClassifyHTTPError(statusCode int) *Error {
	e := &Error{StatusCode: statusCode}

	switch {
	case statusCode == http.StatusTooManyRequests:
		e.Type, e.Message = ErrorTypeRateLimit, "rate limit reached"
	case statusCode == http.StatusForbidden:
		e.Type, e.Message = ErrorTypeForbidden, "access denied"
	case statusCode == http.StatusBadRequest:
		e.Type, e.Message = ErrorTypeInvalidRequest, "invalid request"
	case statusCode == http.StatusGatewayTimeout || statusCode == http.StatusRequestTimeout:
		e.Type, e.Message = ErrorTypeTimeout, fmt.Sprintf("search timed out (status %d)", statusCode)
	case statusCode >= 500:
		e.Type, e.Message = ErrorTypeUnavailable, fmt.Sprintf("search service unavailable (status %d)", statusCode)
	default:
		e.Type, e.Message = ErrorTypeUnknown, fmt.Sprintf("HTTP error %d", statusCode)
	}

	return e
}

// classifyTransportError wraps a failure that produced no response.
func classifyTransportError(err error) *Error {
	var netErr net.Error

	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Type: ErrorTypeTimeout, Message: "search request timed out", Err: err}
	}

	return &Error{Type: ErrorTypeUnavailable, Message: "search request failed", Err: err}
}
