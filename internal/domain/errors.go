package domain

import "errors"

var (
	ErrMissingParam       = errors.New("missing required parameter")
	ErrSubjectExists      = errors.New("subject already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSubjectNotFound    = errors.New("subject not found")
)

// MissingParamError names the required field that was absent or empty.
type MissingParamError struct {
	Field string
}

func (e *MissingParamError) Error() string {
	return ErrMissingParam.Error() + ": " + e.Field
}

func (e *MissingParamError) Is(target error) bool {
	return target == ErrMissingParam
}

// MissingParam reports field as missing.
func MissingParam(field string) error {
	return &MissingParamError{Field: field}
}
