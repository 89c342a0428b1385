package rowmap

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors, one per error kind.
var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("rowmap: row not found")

	// ErrConnection is returned when the driver or the network fails.
	ErrConnection = errors.New("rowmap: connection failure")

	// ErrConfiguration is returned for unsupported dialects, empty queries
	// and operations a dialect cannot perform.
	ErrConfiguration = errors.New("rowmap: invalid configuration")

	// ErrProgramming is returned when the caller misuses the API, for example
	// by rolling back a transaction that was never started.
	ErrProgramming = errors.New("rowmap: programming error")
)

// NotFoundError represents an error when a row is not found.
type NotFoundError struct {
	table string
	id    any // Optional: the ID that was searched for
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("rowmap: %s row not found (id=%v)", e.table, e.id)
	}
	return fmt.Sprintf("rowmap: %s row not found", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table that was searched.
func (e *NotFoundError) Table() string {
	return e.table
}

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any {
	return e.id
}

// NewNotFoundError returns a new NotFoundError for the given table.
func NewNotFoundError(table string, id any) *NotFoundError {
	return &NotFoundError{table: table, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ConnectionError wraps a driver or network failure with the operation
// that was being performed.
type ConnectionError struct {
	Op  string // Operation (e.g., "open", "query", "exec", "begin")
	Err error  // Underlying driver error
}

// Error returns the error string.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("rowmap: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches ErrConnection.
func (e *ConnectionError) Is(err error) bool {
	return err == ErrConnection
}

// NewConnectionError returns a new ConnectionError. It returns nil if err is nil.
func NewConnectionError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{Op: op, Err: err}
}

// IsConnectionError returns true if the error is a ConnectionError.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConnectionError
	return errors.As(err, &e)
}

// ConfigurationError represents an invalid configuration value.
type ConfigurationError struct {
	Field   string // Configuration field or operation name
	Value   any    // Offending value (may be nil)
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("rowmap: configuration error")
	if e.Field != "" {
		b.WriteString(" for ")
		b.WriteString(e.Field)
	}
	if e.Value != nil {
		fmt.Fprintf(&b, " (value: %v)", e.Value)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target error matches ErrConfiguration.
func (e *ConfigurationError) Is(err error) bool {
	return err == ErrConfiguration
}

// NewConfigurationError returns a new ConfigurationError.
func NewConfigurationError(field string, value any, msg string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Message: msg}
}

// IsConfigurationError returns true if the error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigurationError
	return errors.As(err, &e)
}

// ProgrammingError indicates caller misuse.
type ProgrammingError struct {
	Message string
}

// Error returns the error string.
func (e *ProgrammingError) Error() string {
	return "rowmap: " + e.Message
}

// Is reports whether the target error matches ErrProgramming.
func (e *ProgrammingError) Is(err error) bool {
	return err == ErrProgramming
}

// NewProgrammingError returns a new ProgrammingError.
func NewProgrammingError(msg string) *ProgrammingError {
	return &ProgrammingError{Message: msg}
}

// IsProgrammingError returns true if the error is a ProgrammingError.
func IsProgrammingError(err error) bool {
	if err == nil {
		return false
	}
	var e *ProgrammingError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "rowmap: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("rowmap: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
