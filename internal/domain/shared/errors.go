// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Rule errors surfaced to the caller as actionable kinds.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrDuplicateName    = errors.New("duplicate name")
	ErrInvalidName      = errors.New("invalid name")

	// Validation errors
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// Concurrency errors
	ErrLockNotAcquired = errors.New("lock not acquired")

	// Infrastructure errors
	ErrServiceUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "profile", "progress", "grading"
	Op      string // Operation that failed, e.g., "Create", "Activate"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Detailf returns a copy of sentinel e carrying call-site detail. errors.Is
// matches the copy against e and against e's kind.
func (e *DomainError) Detailf(format string, args ...any) *DomainError {
	return &DomainError{
		Domain:  e.Domain,
		Op:      e.Op,
		Kind:    e,
		Message: e.Message,
		Err:     fmt.Errorf(format, args...),
	}
}

// Belt domain errors
var (
	ErrBeltNotFound      = NewDomainError("belt", "Find", ErrNotFound, "belt rank not found")
	ErrDuplicateSortKey  = NewDomainError("belt", "Validate", ErrInvalidInput, "belt sort order must be unique")
	ErrDuplicateBeltID   = NewDomainError("belt", "Validate", ErrAlreadyExists, "belt id must be unique")
	ErrEmptyBeltCatalog  = NewDomainError("belt", "Validate", ErrEmptyValue, "belt catalog is empty")
	ErrInvalidBeltRecord = NewDomainError("belt", "Validate", ErrInvalidInput, "belt rank is incomplete")
)

// Content domain errors
var (
	ErrContentNotFound    = NewDomainError("content", "Find", ErrNotFound, "content item not found")
	ErrDuplicateContentID = NewDomainError("content", "Load", ErrAlreadyExists, "content id must be unique")
	ErrInvalidContentKind = NewDomainError("content", "Validate", ErrInvalidInput, "unknown content kind")
)

// Profile domain errors
var (
	ErrProfileNotFound     = NewDomainError("profile", "Find", ErrNotFound, "profile not found")
	ErrProfileExists       = NewDomainError("profile", "Create", ErrAlreadyExists, "profile already exists")
	ErrProfileLimitReached = NewDomainError("profile", "Create", ErrCapacityExceeded, "profile limit reached")
	ErrProfileNameTaken    = NewDomainError("profile", "Create", ErrDuplicateName, "profile name already taken")
	ErrProfileNameEmpty    = NewDomainError("profile", "Validate", ErrInvalidName, "profile name cannot be empty")
	ErrProfileNameTooLong  = NewDomainError("profile", "Validate", ErrInvalidName, "profile name is too long")
	ErrInvalidAvatar       = NewDomainError("profile", "Validate", ErrInvalidInput, "unknown avatar")
	ErrInvalidColorTheme   = NewDomainError("profile", "Validate", ErrInvalidInput, "unknown color theme")
	ErrInvalidLearningMode = NewDomainError("profile", "Validate", ErrInvalidInput, "unknown learning mode")
	ErrInvalidStudyGoal    = NewDomainError("profile", "Validate", ErrValueOutOfRange, "daily study goal out of range")
)

// Progress domain errors
var (
	ErrProgressNotFound = NewDomainError("progress", "Find", ErrNotFound, "progress record not found")
	ErrProgressExists   = NewDomainError("progress", "Insert", ErrAlreadyExists, "progress record already exists")
	ErrInvalidStage     = NewDomainError("progress", "Validate", ErrInvalidInput, "unknown mastery stage")
)

// Session domain errors
var (
	ErrSessionFinalized    = NewDomainError("session", "Complete", ErrStateTransition, "study session already finalized")
	ErrInvalidSessionType  = NewDomainError("session", "Validate", ErrInvalidInput, "unknown session type")
	ErrInvalidSessionCount = NewDomainError("session", "Validate", ErrValueOutOfRange, "correct answers must be between 0 and items studied")
	ErrSessionEndsEarly    = NewDomainError("session", "Complete", ErrInvalidInput, "session cannot end before it starts")
)

// Grading domain errors
var (
	ErrInvalidGradingType = NewDomainError("grading", "Validate", ErrInvalidInput, "unknown grading type")
)

// Exchange errors
var (
	ErrChecksumMismatch     = NewDomainError("exchange", "Verify", ErrInvalidFormat, "export checksum mismatch")
	ErrUnsupportedExport    = NewDomainError("exchange", "Decode", ErrInvalidFormat, "unsupported export version")
	ErrInvalidExportPayload = NewDomainError("exchange", "Validate", ErrInvalidInput, "export payload failed validation")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsCapacityExceeded checks if the error reports a full profile store.
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsDuplicateName checks if the error reports a name collision.
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

// IsInvalidName checks if the error reports a name outside the allowed length.
func IsInvalidName(err error) bool {
	return errors.Is(err, ErrInvalidName)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsStateConflict checks if the error reports an illegal state change.
func IsStateConflict(err error) bool {
	return errors.Is(err, ErrInvalidState) || errors.Is(err, ErrStateTransition)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrLockNotAcquired)
}
