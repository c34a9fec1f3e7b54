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
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyProcessed = errors.New("already processed")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "progress", "identity", "streak"
	Op      string // Operation that failed, e.g., "Save", "Link"
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

// Shared value object errors
var (
	ErrInvalidVisitorID  = NewDomainError("shared", "Validate", ErrInvalidID, "invalid visitor ID")
	ErrInvalidAccountID  = NewDomainError("shared", "Validate", ErrInvalidID, "invalid account ID")
	ErrInvalidEmail      = NewDomainError("shared", "Validate", ErrInvalidFormat, "invalid email address")
	ErrInvalidRecordKind = NewDomainError("shared", "Validate", ErrInvalidInput, "record kind must be form or checklist")
	ErrInvalidUnitSlug   = NewDomainError("shared", "Validate", ErrInvalidFormat, "invalid unit slug")
	ErrInvalidOwner      = NewDomainError("shared", "Validate", ErrInvalidInput, "invalid owner reference")
)

// Progress domain errors
var (
	ErrRecordNotFound   = NewDomainError("progress", "Find", ErrNotFound, "progress record not found")
	ErrPayloadMalformed = NewDomainError("progress", "DecodePayload", ErrInvalidFormat, "progress payload is malformed")
	ErrRecordMigrated   = NewDomainError("progress", "Save", ErrAlreadyProcessed, "record already migrated")
)

// Identity domain errors
var (
	ErrAccountNotFound      = NewDomainError("identity", "Find", ErrNotFound, "account not found")
	ErrAccountAlreadyExists = NewDomainError("identity", "Create", ErrAlreadyExists, "account already exists")
	ErrEmailAlreadyLinked   = NewDomainError("identity", "LinkEmail", ErrAlreadyExists, "record already linked to a different email")
	ErrAccountAlreadyLinked = NewDomainError("identity", "LinkAccount", ErrAlreadyExists, "record already linked to a different account")
)

// Content domain errors
var (
	ErrUnitNotFound          = NewDomainError("content", "Find", ErrNotFound, "unit not found in catalog")
	ErrCatalogCycle          = NewDomainError("content", "Validate", ErrInvalidState, "unlock graph contains a cycle")
	ErrUnknownConditionKind  = NewDomainError("content", "Validate", ErrInvalidInput, "unknown unlock condition kind")
	ErrUnknownUnlockTarget   = NewDomainError("content", "Validate", ErrInvalidInput, "unlock condition references unknown unit")
	ErrCompletionNotFound    = NewDomainError("content", "FindCompletion", ErrNotFound, "completion state not found")
	ErrInvalidQuizScore      = NewDomainError("content", "Validate", ErrValueOutOfRange, "quiz score must be between 0 and 100")
	ErrUnknownUnlockReason   = NewDomainError("content", "Validate", ErrInvalidInput, "unknown unlock reason")
	ErrDuplicateCatalogSlug  = NewDomainError("content", "Load", ErrAlreadyExists, "duplicate unit slug in catalog")
	ErrUnknownCompletionStep = NewDomainError("content", "Complete", ErrInvalidInput, "sub-unit does not belong to this unit")
)

// Streak domain errors
var (
	ErrStreakNotFound    = NewDomainError("streak", "Find", ErrNotFound, "streak state not found")
	ErrActivityInPast    = NewDomainError("streak", "Record", ErrInvalidInput, "activity date precedes last recorded day")
	ErrInvalidWindowSize = NewDomainError("streak", "Validate", ErrValueOutOfRange, "history window must be positive")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Find", ErrNotFound, "achievement definition not found")
	ErrAlreadyGranted      = NewDomainError("achievement", "Grant", ErrAlreadyExists, "achievement already granted")
	ErrUnknownAchievement  = NewDomainError("achievement", "Validate", ErrInvalidInput, "unknown achievement kind")
)

// External service errors
var (
	ErrContentGenUnavailable     = NewDomainError("contentgen", "Request", ErrServiceUnavailable, "content generation API is unavailable")
	ErrContentGenRateLimited     = NewDomainError("contentgen", "Request", ErrRateLimited, "content generation API rate limit exceeded")
	ErrContentGenTimeout         = NewDomainError("contentgen", "Request", ErrTimeout, "content generation API request timeout")
	ErrContentGenInvalidResponse = NewDomainError("contentgen", "Parse", ErrInvalidFormat, "invalid response from content generation API")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}
