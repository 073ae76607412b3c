// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeUnauthorized indicates the source rejected the credentials.
	// Never retried.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeNetwork indicates a transient transport failure, including
	// per-request timeouts. Retried with backoff.
	ErrCodeNetwork ErrorCode = "NETWORK"
	// ErrCodeRateLimitExceeded indicates the source throttled the client.
	// Retried after the server-suggested delay.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeSchema indicates a single source record could not be normalized.
	ErrCodeSchema ErrorCode = "SCHEMA"
	// ErrCodeNotReady indicates no inventory snapshot has been published yet.
	ErrCodeNotReady ErrorCode = "NOT_READY"
	// ErrCodeTimeout indicates an operation exceeded its time limit.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeInvalidRequest indicates malformed or invalid input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeMethodNotAllowed indicates the HTTP method is not allowed for the resource.
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// ErrCodeUnavailable indicates a service or resource is temporarily unavailable.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ContextKeyRetryAfter is the Context key carrying a server-suggested
// retry delay as a time.Duration.
const ContextKeyRetryAfter = "retry_after"

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether a refresh cycle may retry the failed operation.
func (e *StructuredError) Retryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeRateLimitExceeded, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

// RetryAfter returns the server-suggested delay, if one was recorded.
func (e *StructuredError) RetryAfter() (time.Duration, bool) {
	if e.Context == nil {
		return 0, false
	}
	d, ok := e.Context[ContextKeyRetryAfter].(time.Duration)
	return d, ok
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or an empty code when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// AsStructured returns the outermost StructuredError in err's chain.
func AsStructured(err error) (*StructuredError, bool) {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// IsRetryable reports whether err is a StructuredError marked retryable.
func IsRetryable(err error) bool {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Retryable()
	}
	return false
}
