package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceUnreachableError is returned when a readiness probe exhausts its retry
// budget. It is fatal to the whole run.
type ServiceUnreachableError struct {
	URL      string
	Attempts int
	Elapsed  time.Duration
	Last     error
}

func NewServiceUnreachableError(url string, attempts int, elapsed time.Duration, last error) *ServiceUnreachableError {
	return &ServiceUnreachableError{URL: url, Attempts: attempts, Elapsed: elapsed, Last: last}
}

func (e *ServiceUnreachableError) Error() string {
	msg := fmt.Sprintf("service at %s not reachable after %d attempts (%s)", e.URL, e.Attempts, e.Elapsed.Round(time.Millisecond))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}
	return msg
}

func (e *ServiceUnreachableError) Unwrap() error {
	return e.Last
}

// ResourceGoneError is returned when a record can no longer be resolved, e.g.
// its delete control is absent because it was already deleted.
type ResourceGoneError struct {
	Location string
}

func NewResourceGoneError(location string) *ResourceGoneError {
	return &ResourceGoneError{Location: location}
}

func (e *ResourceGoneError) Error() string {
	return fmt.Sprintf("resource at %s is gone", e.Location)
}

// ElementNotFoundError is raised by workflows when a required control is absent.
type ElementNotFoundError struct {
	Selector string
	Page     string
}

func NewElementNotFoundError(selector, page string) *ElementNotFoundError {
	return &ElementNotFoundError{Selector: selector, Page: page}
}

func (e *ElementNotFoundError) Error() string {
	if e.Page == "" {
		return fmt.Sprintf("element %s not found", e.Selector)
	}
	return fmt.Sprintf("element %s not found on %s", e.Selector, e.Page)
}

// VerificationError carries the unmet expectations of an out-of-band check
// together with the captured output so the failure can be diagnosed without
// re-running.
type VerificationError struct {
	Check   string
	Missing []string
	Output  string
}

func NewVerificationError(check string, missing []string, output string) *VerificationError {
	return &VerificationError{Check: check, Missing: missing, Output: output}
}

func (e *VerificationError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Check)
	if len(e.Missing) > 0 {
		sb.WriteString(": missing ")
		sb.WriteString(strings.Join(e.Missing, ", "))
	}
	sb.WriteString("\nOutput:\n")
	sb.WriteString(e.Output)
	return sb.String()
}

// CommandError is returned when an external command cannot be started.
type CommandError struct {
	Command string
	Err     error
}

func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("failed to run %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// InvalidConfigurationError reports a configuration value that cannot be used.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func NewInvalidConfigurationError(field, reason string) *InvalidConfigurationError {
	return &InvalidConfigurationError{Field: field, Reason: reason}
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RunNotFoundError is returned by the results store for an unknown run ID.
type RunNotFoundError struct {
	ID string
}

func NewRunNotFoundError(id string) *RunNotFoundError {
	return &RunNotFoundError{ID: id}
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run %s not found", e.ID)
}

func IsServiceUnreachableError(err error) bool {
	var e *ServiceUnreachableError
	return errors.As(err, &e)
}

func IsResourceGoneError(err error) bool {
	var e *ResourceGoneError
	return errors.As(err, &e)
}

func IsElementNotFoundError(err error) bool {
	var e *ElementNotFoundError
	return errors.As(err, &e)
}

func IsVerificationError(err error) bool {
	var e *VerificationError
	return errors.As(err, &e)
}

func IsCommandError(err error) bool {
	var e *CommandError
	return errors.As(err, &e)
}

func IsInvalidConfigurationError(err error) bool {
	var e *InvalidConfigurationError
	return errors.As(err, &e)
}

func IsRunNotFoundError(err error) bool {
	var e *RunNotFoundError
	return errors.As(err, &e)
}
