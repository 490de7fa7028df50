// Package errors provides structured error types for tikzcell.
//
// Every failure a render request can hit carries a machine-readable [Code]
// so the CLI, the notebook adapter and the HTTP server can map it to an exit
// status, a display message or a response code without string matching.
//
// # Error Codes
//
//   - INVALID_*, EMPTY_CONTENT, FILE_NOT_FOUND: the request was rejected
//   - COMPILATION_FAILED: the LaTeX engine produced no PDF
//   - CONVERSION_FAILED: the raster converter produced no usable PNG
//   - EXPORT_FAILED: the PDF could not be copied to the export path
//   - TIMEOUT: a subprocess exceeded the configured deadline
//
// # Usage
//
//	err := errors.New(errors.ErrCodeCompilation, "%s did not produce a PDF file", engine)
//	if errors.Is(err, errors.ErrCodeCompilation) {
//	    // show the compiler log
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// Rejected requests.
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidEngine Code = "INVALID_ENGINE"
	ErrCodeInvalidScale  Code = "INVALID_SCALE"
	ErrCodeInvalidBorder Code = "INVALID_BORDER"
	ErrCodeInvalidPath   Code = "INVALID_PATH"
	ErrCodeEmptyContent  Code = "EMPTY_CONTENT"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"

	// Pipeline failures.
	ErrCodeCompilation Code = "COMPILATION_FAILED"
	ErrCodeConversion  Code = "CONVERSION_FAILED"
	ErrCodeExport      Code = "EXPORT_FAILED"
	ErrCodeTimeout     Code = "TIMEOUT"

	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

var hints = map[Code]string{
	ErrCodeEmptyContent: "pass a cell body, a file, or -i <file>",
	ErrCodeCompilation:  "missing packages go in -p, missing TikZ libraries in -l",
	ErrCodeConversion:   "the converter needs ImageMagick with Ghostscript, or poppler for pdftoppm",
	ErrCodeExport:       "the export directory must exist and be writable",
	ErrCodeTimeout:      "raise --timeout or simplify the drawing",
}

// Hint returns a one-line suggestion for fixing errors with this code,
// or "" when there is nothing useful to say.
func (c Code) Hint() string { return hints[c] }

// Validation reports whether c means the request was rejected before any
// program ran.
func (c Code) Validation() bool {
	switch c {
	case ErrCodeInvalidInput, ErrCodeInvalidEngine, ErrCodeInvalidScale,
		ErrCodeInvalidBorder, ErrCodeInvalidPath, ErrCodeEmptyContent, ErrCodeFileNotFound:
		return true
	}
	return false
}

// Error is a coded error. Detail holds diagnostic output too long for the
// message, such as the TeX error lines of a failed compilation.
type Error struct {
	Code    Code
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// WithDetail sets e.Detail and returns e.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// New returns an error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap returns an error with the given code that wraps cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// From returns the outermost *Error in err's chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	e, ok := From(err)
	return ok && e.Code == code
}

// GetCode returns the code of err, or "" for uncoded errors.
func GetCode(err error) Code {
	if e, ok := From(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of a coded error without its code and
// cause, or err.Error() for other errors.
func UserMessage(err error) string {
	if e, ok := From(err); ok {
		return e.Message
	}
	return err.Error()
}

// DetailOf returns the detail attached to err, or "".
func DetailOf(err error) string {
	if e, ok := From(err); ok {
		return e.Detail
	}
	return ""
}

// IsValidation reports whether err is a rejected request.
func IsValidation(err error) bool {
	return GetCode(err).Validation()
}
