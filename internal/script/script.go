// Package script runs tengo rule scripts for game systems supplied as
// files rather than compiled-in Go. Scripts are loaded through an afero
// filesystem and reloaded on change, so a GM can tweak table rules without
// a server restart.
package script

import (
	"time"
)

// ErrorType categorizes script failures.
type ErrorType string

const (
	ErrorTypeCompilation ErrorType = "compilation"
	ErrorTypeExecution   ErrorType = "execution"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeNotFound    ErrorType = "not_found"
)

// Script is one loaded rule script.
type Script struct {
	Name       string
	Content    string
	Checksum   string
	ModifiedAt time.Time
}

// Limits bounds what a script may do per invocation.
type Limits struct {
	MaxExecutionTime time.Duration
	// AllowedModules names the tengo stdlib modules scripts may import.
	AllowedModules []string
}

// DefaultLimits returns the limits applied when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxExecutionTime: 100 * time.Millisecond,
		AllowedModules:   []string{"fmt", "math", "rand", "text"},
	}
}

// Error is a script failure with enough context to log usefully.
type Error struct {
	Type    ErrorType
	Script  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a script error.
func NewError(errorType ErrorType, script, message string, cause error) *Error {
	return &Error{Type: errorType, Script: script, Message: message, Cause: cause}
}
