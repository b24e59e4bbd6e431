package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks a configuration that loaded but cannot run the
// arena. ErrLoadConfig marks a file or environment that could not be read.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// invalid reports a bad value for the koanf key field.
func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}
