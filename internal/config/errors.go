package config

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates an explicitly named configuration file doesn't
// exist.
var ErrFileNotFound = errors.New("config file not found")

// ValidationError describes a setting with an unusable value.
type ValidationError struct {
	// Key is the dotted setting path.
	Key string
	// Value is the invalid value.
	Value any
	// Message describes what is wrong.
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s = %v: %s", e.Key, e.Value, e.Message)
}
