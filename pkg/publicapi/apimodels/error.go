package apimodels

import (
	"fmt"
	"net/http"
)

// APIError is the JSON body of every failed API call.
type APIError struct {
	// HTTPStatusCode is the http status code associated with this error.
	HTTPStatusCode int `json:"Status"`

	// Message is a short, human-readable description of the error.
	Message string `json:"Message"`

	// RequestID is the request ID of the request that caused the error.
	RequestID string `json:"RequestID"`

	// Code is a machine readable error code.
	Code string `json:"Code"`
}

const (
	CodeBadRequest    = "BadRequest"
	CodeNotFound      = "NotFound"
	CodeInternalError = "InternalError"
)

// NewAPIError creates a new APIError with the given HTTP status code and message.
func NewAPIError(statusCode int, message string) *APIError {
	return &APIError{
		HTTPStatusCode: statusCode,
		Message:        message,
		Code:           CodeForStatus(statusCode),
	}
}

func NewBadRequestError(format string, args ...any) *APIError {
	return NewAPIError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func NewNotFoundError(format string, args ...any) *APIError {
	return NewAPIError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// Error implements the error interface, allowing APIError to be used as a standard Go error.
func (e *APIError) Error() string {
	return e.Message
}

// CodeForStatus maps an HTTP status to the error code reported with it.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusNotFound:
		return CodeNotFound
	default:
		return CodeInternalError
	}
}
