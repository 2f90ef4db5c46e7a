package models

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the sentinel every ConfigurationError unwraps to.
var ErrConfiguration = errors.New("models: configuration error")

// ConfigurationError reports an unknown model id or a malformed profile.
// It is fatal to the request that triggered it.
type ConfigurationError struct {
	Model  string
	Reason string
	Err    error
}

// NewConfigurationError builds a ConfigurationError for callers outside this
// package that validate their own budget or engine settings.
func NewConfigurationError(model, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Model: model, Reason: reason, Err: err}
}

func newConfigError(model, reason string, err error) *ConfigurationError {
	return NewConfigurationError(model, reason, err)
}

func (e *ConfigurationError) Error() string {
	msg := "models: " + e.Reason
	if e.Model != "" {
		msg = fmt.Sprintf("models: %s: %s", e.Model, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrConfiguration) true for every ConfigurationError.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
