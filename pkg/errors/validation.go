package errors

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ValidateEngine validates a LaTeX engine name.
// The engine is passed straight to exec, so it must be a single program name
// or path: no whitespace, no control characters, no leading dash.
func ValidateEngine(engine string) error {
	if engine == "" {
		return New(ErrCodeInvalidEngine, "engine cannot be empty")
	}
	if strings.HasPrefix(engine, "-") {
		return New(ErrCodeInvalidEngine, "engine cannot start with '-': %q", engine)
	}
	for _, r := range engine {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidEngine, "engine contains invalid characters: %q", engine)
		}
	}
	return nil
}

// ValidateScale checks that scale is a finite positive number.
func ValidateScale(scale float64) error {
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return New(ErrCodeInvalidScale, "scale must be a positive number, got %v", scale)
	}
	return nil
}

// borderRegex matches a non-negative TeX length with an optional unit (4, 2.5pt, 1mm).
var borderRegex = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)\s*([a-zA-Z]{2})?\s*$`)

// ValidateBorder validates the standalone border option.
func ValidateBorder(border string) error {
	m := borderRegex.FindStringSubmatch(border)
	if m == nil {
		return New(ErrCodeInvalidBorder, "border must be a non-negative number, got %q", border)
	}
	if _, err := strconv.ParseFloat(m[1], 64); err != nil {
		return Wrap(ErrCodeInvalidBorder, err, "border must be a non-negative number, got %q", border)
	}
	return nil
}

// ValidatePath validates a user-supplied file path (input or export file).
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateInputPath validates a path that is written into the document as
// \input{path}. On top of [ValidatePath] it rejects braces, which would
// close the argument early.
func ValidateInputPath(path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if strings.ContainsAny(path, "{}") {
		return New(ErrCodeInvalidPath, "input path cannot contain braces: %q", path)
	}
	return nil
}
