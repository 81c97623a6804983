// Package errors carries the engine's coded error taxonomy. Codes separate
// caller mistakes (validation, missing resources) from engine-side failures so
// callers can map them onto exit codes or HTTP statuses without string
// matching.
package errors

import (
	"errors"
	"fmt"
)

const (
	CodeValidation         = "VALIDATION"
	CodeNotFound           = "NOT_FOUND"
	CodeBuildFailed        = "BUILD_FAILED"
	CodeRuntimeUnavailable = "RUNTIME_UNAVAILABLE"
)

// Types ////////////////////////////////////////

type CodedError interface {
	error
	Code() string
}

type codedError struct {
	code  string
	msg   string
	cause error
}

func (e *codedError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *codedError) Code() string {
	return e.code
}

func (e *codedError) Unwrap() error {
	return e.cause
}

// Error Creators ///////////////////////////////

// Validationf reports malformed caller input: empty identifiers, nil events,
// paths that cannot possibly build.
func Validationf(format string, v ...interface{}) error {
	return &codedError{code: CodeValidation, msg: fmt.Sprintf(format, v...)}
}

// NotFoundf reports a missing resource: an image no resolution strategy could
// locate, a build directory without a Dockerfile.
func NotFoundf(format string, v ...interface{}) error {
	return &codedError{code: CodeNotFound, msg: fmt.Sprintf(format, v...)}
}

// BuildFailed wraps a failure from the image build pipeline.
func BuildFailed(msg string, cause error) error {
	return &codedError{code: CodeBuildFailed, msg: msg, cause: cause}
}

// RuntimeUnavailable wraps a failure to reach or use the container runtime.
func RuntimeUnavailable(msg string, cause error) error {
	return &codedError{code: CodeRuntimeUnavailable, msg: msg, cause: cause}
}

// Helpers //////////////////////////////////////

func IsValidation(err error) bool {
	return Code(err) == CodeValidation
}

func IsNotFound(err error) bool {
	return Code(err) == CodeNotFound
}

func IsBuildFailed(err error) bool {
	return Code(err) == CodeBuildFailed
}

func IsRuntimeUnavailable(err error) bool {
	return Code(err) == CodeRuntimeUnavailable
}

// Code returns the error code anywhere in err's chain, or the empty string.
func Code(err error) string {
	var cerr CodedError
	if errors.As(err, &cerr) {
		return cerr.Code()
	}

	return ""
}
