// Package errors defines the service error taxonomy shared by the core
// services and the HTTP layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code identifies an error class. Codes are stable and surface in API
// responses, so they must not change between releases.
type Code string

const (
	CodeUnauthorized   Code = "unauthorized"
	CodeNotFound       Code = "not_found"
	CodeInvalidPayload Code = "invalid_payload"
	CodeRenderFailed   Code = "render_failed"
	CodeInternal       Code = "internal"
)

// ServiceError carries an error class, an operator-facing message and the
// HTTP status the transport layer should map it to.
type ServiceError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Unauthorized reports a bad or unknown token.
func Unauthorized(message string) *ServiceError {
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NotFound reports a missing tenant or artifact.
func NotFound(message string) *ServiceError {
	return &ServiceError{Code: CodeNotFound, Message: message, HTTPStatus: http.StatusNotFound}
}

// InvalidPayload reports malformed submission data or an empty render prompt.
func InvalidPayload(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidPayload, Message: message, HTTPStatus: http.StatusBadRequest}
}

// RenderFailed reports a rendering-service failure, timeout included.
func RenderFailed(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeRenderFailed, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// Internal reports an unexpected failure inside the service.
func Internal(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// CodeOf extracts the error class, defaulting to internal.
func CodeOf(err error) Code {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr.Code
	}
	return CodeInternal
}

// StatusOf maps an error to the HTTP status the transport should return.
func StatusOf(err error) int {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// Is reports whether err belongs to the given class.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
