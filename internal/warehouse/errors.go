package warehouse

import "fmt"

// ConfigError reports a missing or invalid load configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("load config: %s %s", e.Field, e.Reason)
}

// WriteError wraps a failed warehouse operation with its target and
// the operation that failed (append, upsert, truncate, insert).
type WriteError struct {
	Target string
	Op     string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("warehouse %s on %s: %v", e.Op, e.Target, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
