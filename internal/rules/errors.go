package rules

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound indicates an explicitly requested rule file does not exist.
var ErrConfigNotFound = errors.New("rule file not found")

// ConfigParseError reports a rule file that exists but cannot be turned
// into a RuleSet. It is always fatal: no plan is built and nothing is mutated.
type ConfigParseError struct {
	// Path is the rule file path
	Path string

	// Line is the 1-based line of the offending node, 0 if unknown
	Line int

	// Reason describes what was expected
	Reason string

	// Err is the underlying decode or compile error, if any
	Err error
}

// Error implements the error interface.
func (e *ConfigParseError) Error() string {
	location := e.Path
	if e.Line > 0 {
		location = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	if e.Err != nil {
		return fmt.Sprintf("invalid rule file %s: %s: %v", location, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid rule file %s: %s", location, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// IsConfigParseError reports whether err is or wraps a ConfigParseError.
func IsConfigParseError(err error) bool {
	var parseErr *ConfigParseError
	return errors.As(err, &parseErr)
}
