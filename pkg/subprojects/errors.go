// Package subprojects analyzes the subprojects of a workspace and exposes
// their root scopes to the analyzer of the parent project.
package subprojects

import (
	"errors"
	"fmt"
)

// ErrorClass classifies why a subproject could not be analyzed.
type ErrorClass string

const (
	// ErrorClassMissing means the subproject has no build files.
	ErrorClassMissing ErrorClass = "missing"

	// ErrorClassInvalid means the subproject declaration is unusable, e.g. an
	// empty or duplicate name.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassAnalysis means the analysis itself did not complete.
	ErrorClassAnalysis ErrorClass = "analysis"
)

// Error codes.
const (
	ErrCodeNoTree        = "NO_TREE"
	ErrCodeEmptyName     = "EMPTY_NAME"
	ErrCodeDuplicateName = "DUPLICATE_NAME"
	ErrCodeCancelled     = "CANCELLED"
	ErrCodePanic         = "PANIC"
	ErrCodeCycle         = "CYCLE"
)

// SubprojectError is a classified failure of one subproject. Failures never
// abort the analysis of sibling subprojects.
type SubprojectError struct {
	Class      ErrorClass `json:"class"`
	Message    string     `json:"message"`
	Code       string     `json:"code,omitempty"`
	Subproject string     `json:"subproject,omitempty"`
	Err        error      `json:"-"`
}

func (e *SubprojectError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Subproject != "" {
		msg += fmt.Sprintf(" (subproject=%s)", e.Subproject)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *SubprojectError) Unwrap() error {
	return e.Err
}

// Is matches errors of the same class and code.
func (e *SubprojectError) Is(target error) bool {
	t, ok := target.(*SubprojectError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewMissingError creates an error for a subproject without build files.
func NewMissingError(name, message string) *SubprojectError {
	return &SubprojectError{Class: ErrorClassMissing, Message: message, Subproject: name}
}

// NewInvalidError creates an error for an unusable subproject declaration.
func NewInvalidError(name, message string) *SubprojectError {
	return &SubprojectError{Class: ErrorClassInvalid, Message: message, Subproject: name}
}

// NewAnalysisError creates an error for an analysis that did not complete.
func NewAnalysisError(name, message string, err error) *SubprojectError {
	return &SubprojectError{Class: ErrorClassAnalysis, Message: message, Subproject: name, Err: err}
}

// WithCode sets the error code.
func (e *SubprojectError) WithCode(code string) *SubprojectError {
	e.Code = code
	return e
}

func classOf(err error) (ErrorClass, bool) {
	var e *SubprojectError
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

// IsMissing reports whether err is a missing-subproject error.
func IsMissing(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassMissing
}

// IsInvalid reports whether err is an invalid-subproject error.
func IsInvalid(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassInvalid
}

// IsAnalysis reports whether err is an analysis error.
func IsAnalysis(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassAnalysis
}
