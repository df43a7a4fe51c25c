package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error codes carried by every error envelope.
const (
	CodeMissingParam       = "MISSING_PARAM"
	CodeSubjectExists      = "SUBJECT_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeMissingCredential  = "MISSING_CREDENTIAL"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeExpiredToken       = "EXPIRED_TOKEN"
	CodeNotFound           = "NOT_FOUND"
	CodeClientError        = "CLIENT_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewMissingParam reports an absent or empty required field. Existing
// clients expect 404 for this case.
func NewMissingParam(details map[string]any) error {
	return NewDomainError(CodeMissingParam, "request parameters are invalid or a required field is missing", http.StatusNotFound, details)
}

func NewSubjectExists(message string) error {
	return NewDomainError(CodeSubjectExists, message, http.StatusBadRequest, nil)
}

func NewInvalidCredentials(message string) error {
	return NewDomainError(CodeInvalidCredentials, message, http.StatusUnauthorized, nil)
}

func NewMissingCredential() error {
	return NewDomainError(CodeMissingCredential, "authentication token not provided", http.StatusUnauthorized, nil)
}

func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "invalid authentication token", http.StatusUnauthorized, nil)
}

func NewExpiredToken() error {
	return NewDomainError(CodeExpiredToken, "authentication token has expired", http.StatusUnauthorized, nil)
}

func NewNotFound(resource string) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fromFiberError(fiberErr)
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func fromFiberError(err *fiber.Error) *DomainError {
	switch {
	case err.Code == http.StatusNotFound:
		return NewDomainError(CodeNotFound, err.Message, err.Code, nil)
	case err.Code >= 400 && err.Code < 500:
		return NewDomainError(CodeClientError, err.Message, err.Code, nil)
	default:
		return &DomainError{
			Code:       CodeInternal,
			Message:    "internal server error",
			HTTPStatus: http.StatusInternalServerError,
			Err:        err,
		}
	}
}
