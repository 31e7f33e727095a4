// Package errors provides centralized error definitions and error handling
// utilities for the initiative tracker. It defines sentinel errors, domain
// error types for the store, turn and ring subsystems, and classification
// helpers used at command boundaries to decide whether a failure is logged
// and retried on the next event or silently discarded.
//
// # Error Types
//
// Domain-specific errors:
//   - StoreError: failures talking to the entity or overlay document store
//   - RingError: failures during a ring reconciliation pass
//
// Semantic errors:
//   - NotFoundError: a referenced participant or ring is gone
//   - ValidationError: invalid input or configuration
//   - TimeoutError: a bounded wait gave up
//
// # Usage
//
//	err := errors.NewStoreError("batch patch failed", cause).WithOperation("batch_patch")
//	if errors.IsRetryable(err) { ... }
//	if errors.IsStale(err) { ... } // superseded generation, not a failure
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity decides the log level a command boundary uses for an error.
type Severity int

// SeverityDebug covers expected outcomes such as a superseded generation;
// SeverityWarning covers degraded but recoverable ones.
const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

var severityNames = [...]string{"debug", "info", "warning", "error"}

func (s Severity) String() string {
	if s < 0 || int(s) >= len(severityNames) {
		return "unknown"
	}
	return severityNames[s]
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Store-related sentinel errors
var (
	// ErrStoreUnavailable indicates the document store could not be reached.
	ErrStoreUnavailable = New("store unavailable")
	// ErrStoreClosed indicates the store was used after Close.
	ErrStoreClosed = New("store closed")
	// ErrParticipantNotFound indicates a referenced participant does not exist.
	ErrParticipantNotFound = New("participant not found")
)

// Turn and ring sentinel errors
var (
	// ErrStale indicates that a newer generation superseded an in-flight write.
	ErrStale = New("generation superseded")
	// ErrDeletionUnconfirmed indicates ring deletions were still visible after polling.
	ErrDeletionUnconfirmed = New("ring deletion not confirmed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error
// -----------------------------------------------------------------------------

// TrackerError is the base interface for all tracker errors.
type TrackerError interface {
	error
	Unwrap() error
	Is(target error) bool
	Severity() Severity
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

func (e *baseError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *baseError) Unwrap() error        { return e.cause }
func (e *baseError) Is(target error) bool { return e.cause != nil && errors.Is(e.cause, target) }
func (e *baseError) Severity() Severity   { return e.severity }
func (e *baseError) IsRetryable() bool    { return e.retryable }

// describe renders "kind [k=v, ...]: message: cause", skipping empty values.
func describe(kind, message string, cause error, kv ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	sep := " ["
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		b.WriteString(sep + kv[i] + "=" + kv[i+1])
		sep = ", "
	}
	if sep == ", " {
		b.WriteString("]")
	}
	b.WriteString(": " + message)
	if cause != nil {
		b.WriteString(": " + cause.Error())
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// StoreError represents a failure against the entity or overlay store.
// Store failures are transient by default: the caller keeps its expected
// state and retries on the next triggering event.
//
// Example:
//
//	err := errors.NewStoreError("read participants", cause).WithStore("entities")
//	fmt.Println(err) // "store error [store=entities]: read participants: <cause>"
type StoreError struct {
	baseError
	Store     string
	Operation string
}

// NewStoreError creates a new StoreError.
func NewStoreError(message string, cause error) *StoreError {
	return &StoreError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: true,
		},
	}
}

// WithStore names the store that failed ("entities" or "overlays").
func (e *StoreError) WithStore(store string) *StoreError {
	e.Store = store
	return e
}

// WithOperation names the store operation that failed.
func (e *StoreError) WithOperation(op string) *StoreError {
	e.Operation = op
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *StoreError) WithRetryable(r bool) *StoreError {
	e.retryable = r
	return e
}

func (e *StoreError) Error() string {
	return describe("store error", e.message, e.cause, "store", e.Store, "op", e.Operation)
}

// Is checks if this error matches the target.
func (e *StoreError) Is(target error) bool {
	if _, ok := target.(*StoreError); ok {
		return true
	}
	if target == ErrStoreUnavailable && e.retryable {
		return true
	}
	return e.baseError.Is(target)
}

// RingError represents a failure during ring reconciliation.
//
// Example:
//
//	err := errors.NewRingError("create rings", cause).WithOwner("p-1").WithVariant("normal")
type RingError struct {
	baseError
	OwnerID string
	Variant string
}

// NewRingError creates a new RingError.
func NewRingError(message string, cause error) *RingError {
	return &RingError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityError,
			retryable: IsRetryable(cause),
		},
	}
}

// WithOwner adds the owning participant ID to the error context.
func (e *RingError) WithOwner(id string) *RingError {
	e.OwnerID = id
	return e
}

// WithVariant adds the ring variant to the error context.
func (e *RingError) WithVariant(variant string) *RingError {
	e.Variant = variant
	return e
}

func (e *RingError) Error() string {
	return describe("ring error", e.message, e.cause, "owner", e.OwnerID, "variant", e.Variant)
}

// Is checks if this error matches the target.
func (e *RingError) Is(target error) bool {
	if _, ok := target.(*RingError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a missing participant, ring or group.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:  fmt.Sprintf("%s not found", resourceType),
			severity: SeverityWarning,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	if target == ErrParticipantNotFound && e.ResourceType == "participant" {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or configuration.
//
// Example:
//
//	err := errors.NewValidationError("initiative must be finite").WithField("initiative").WithValue(v)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:  message,
			severity: SeverityWarning,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

func (e *ValidationError) Error() string {
	value := ""
	if e.Value != nil {
		value = fmt.Sprint(e.Value)
	}
	return describe("validation error", e.message, nil, "field", e.Field, "value", value)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents a bounded wait that gave up.
//
// Example:
//
//	err := errors.NewTimeoutError("confirm ring deletion", 500*time.Millisecond)
//	fmt.Println(err) // "timeout error: confirm ring deletion (timeout: 500ms)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:   operation,
			severity:  SeverityWarning,
			retryable: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if target == ErrTimeout {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed when the command is re-issued.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var trackerErr TrackerError
	if As(err, &trackerErr) {
		return trackerErr.IsRetryable()
	}

	return Is(err, ErrTimeout) || Is(err, ErrStoreUnavailable)
}

// IsStale reports whether err means a newer generation superseded the work.
// Stale results are expected coalescing behavior and are never surfaced.
func IsStale(err error) bool {
	return err != nil && Is(err, ErrStale)
}

// GetSeverity returns the severity level of the error.
// Stale errors are always SeverityDebug.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	if IsStale(err) {
		return SeverityDebug
	}

	var trackerErr TrackerError
	if As(err, &trackerErr) {
		return trackerErr.Severity()
	}
	return SeverityError
}

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
