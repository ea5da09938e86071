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

	// Configuration errors. A catalog/caller mismatch is a programming
	// fault, not a user-data issue, and must surface immediately.
	ErrConfiguration = errors.New("configuration error")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "badge", "points", "reward"
	Op      string // Operation that failed, e.g., "Evaluate", "LoadUserState"
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

// Badge domain errors
var (
	ErrBadgeNotFound         = NewDomainError("badge", "Lookup", ErrNotFound, "badge definition not found")
	ErrSpecialBadgeUnknown   = NewDomainError("badge", "CreateSpecial", ErrConfiguration, "special badge not in catalog")
	ErrCommunityBadgeUnknown = NewDomainError("badge", "CreateCommunity", ErrConfiguration, "community badge not in catalog")
	ErrInvalidRarityTier     = NewDomainError("badge", "Validate", ErrConfiguration, "unknown rarity tier")
)

// Progress store errors
var (
	ErrUserProgressNotFound = NewDomainError("progress", "Get", ErrNotFound, "user progress not found")
	ErrProgressUpdateFailed = NewDomainError("progress", "Update", ErrExternalService, "failed to update user progress")
)

// Reward orchestration errors
var (
	ErrRewardEventInvalid = NewDomainError("reward", "Validate", ErrInvalidInput, "invalid reward event")
	ErrLedgerUnavailable  = NewDomainError("ledger", "Submit", ErrServiceUnavailable, "credential ledger is unavailable")
	ErrLedgerRejected     = NewDomainError("ledger", "Submit", ErrExternalService, "credential ledger rejected the award")
)

// Catalog errors
var (
	ErrCatalogEmpty   = NewDomainError("catalog", "Load", ErrConfiguration, "badge catalog is empty")
	ErrCatalogInvalid = NewDomainError("catalog", "Load", ErrConfiguration, "badge catalog definition is invalid")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsConfiguration checks if the error is a configuration/catalog error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification)
}
