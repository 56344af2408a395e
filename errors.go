package om

import (
	"errors"
	"fmt"
)

// ConfigurationError reports invalid or missing mapping metadata: an
// unmapped entity, an undeclared field, or a persistence operation that
// would run unconditionally. It is always fatal to the current call and
// never retried.
type ConfigurationError struct {
	msg string
}

// Error returns the error string.
func (e *ConfigurationError) Error() string { return "om: " + e.msg }

func configErrorf(format string, args ...any) error {
	return &ConfigurationError{msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is a ConfigurationError.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// UnsetValueError reports an attempt to persist a field that was never
// assigned. Callers must supply every required field before insert or
// update.
type UnsetValueError struct {
	Field string
}

// Error returns the error string.
func (e *UnsetValueError) Error() string {
	return fmt.Sprintf("om: field %q holds no value", e.Field)
}

// IsUnsetValue reports whether err is an UnsetValueError.
func IsUnsetValue(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsetValueError
	return errors.As(err, &e)
}
