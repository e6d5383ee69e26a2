// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

// Package errors defines the closed set of failure kinds the gateway returns
// and their HTTP status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds
const (
	// KindAuth is returned when the API key is missing or wrong
	KindAuth = "auth"

	// KindBadRequest is returned when required request input is missing or malformed
	KindBadRequest = "bad_request"

	// KindValidation is returned when a configuration pairing rule is violated
	KindValidation = "validation"

	// KindPayloadTooLarge is returned when an upload exceeds the size limit
	KindPayloadTooLarge = "payload_too_large"

	// KindUnprocessable is returned when the config form field cannot be decoded
	KindUnprocessable = "unprocessable"

	// KindConversion is returned when the converter engine fails
	KindConversion = "conversion"

	// KindInternal is returned for anything unexpected
	KindInternal = "internal"
)

// InternalMessage is the only detail clients see for internal errors.
const InternalMessage = "Internal server error. Please try again later."

// Error is a gateway error with a kind, a client-facing message and an
// optional cause.
type Error struct {
	// Kind is one of the Kind constants
	Kind string

	// Message is safe to show to the client
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewAuthError creates a new auth error
func NewAuthError(message string) *Error {
	return NewError(KindAuth, message, nil)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, cause error) *Error {
	return NewError(KindBadRequest, message, cause)
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *Error {
	return NewError(KindValidation, message, nil)
}

// NewPayloadTooLargeError creates a new payload too large error
func NewPayloadTooLargeError(message string) *Error {
	return NewError(KindPayloadTooLarge, message, nil)
}

// NewUnprocessableError creates a new unprocessable error
func NewUnprocessableError(message string, cause error) *Error {
	return NewError(KindUnprocessable, message, cause)
}

// NewConversionError wraps an engine failure. The message carries the
// engine's own text.
func NewConversionError(cause error) *Error {
	return NewError(KindConversion, "Conversion failed: "+cause.Error(), cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(KindInternal, message, cause)
}

func kindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsAuth checks if the error is an auth error
func IsAuth(err error) bool { return kindOf(err) == KindAuth }

// IsBadRequest checks if the error is a bad request error
func IsBadRequest(err error) bool { return kindOf(err) == KindBadRequest }

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return kindOf(err) == KindValidation }

// IsPayloadTooLarge checks if the error is a payload too large error
func IsPayloadTooLarge(err error) bool { return kindOf(err) == KindPayloadTooLarge }

// IsUnprocessable checks if the error is an unprocessable error
func IsUnprocessable(err error) bool { return kindOf(err) == KindUnprocessable }

// IsConversion checks if the error is a conversion error
func IsConversion(err error) bool { return kindOf(err) == KindConversion }

// IsInternal checks if the error is an internal error. Errors that are not
// an *Error count as internal.
func IsInternal(err error) bool { return kindOf(err) == KindInternal }

// Code returns the HTTP status for err.
func Code(err error) int {
	switch {
	case IsAuth(err):
		return http.StatusUnauthorized
	case IsBadRequest(err), IsValidation(err):
		return http.StatusBadRequest
	case IsPayloadTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case IsUnprocessable(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Detail returns the message a client may see for err.
func Detail(err error) string {
	if IsInternal(err) {
		return InternalMessage
	}
	var e *Error
	errors.As(err, &e)
	return e.Message
}
