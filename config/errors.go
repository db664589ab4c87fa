// ABOUTME: ConfigurationError for required inputs that are missing or unusable
// ABOUTME: Raised by config validation and by the orchestrator when a mandatory column is absent
package config

import "fmt"

// ConfigurationError is fatal: the submission cannot proceed and the message is shown to
// the operator verbatim.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
