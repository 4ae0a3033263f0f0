package services

import "fmt"

// Custom errors raised by the service layer and mapped to HTTP codes by
// handlers.handleServiceError.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

// ForbiddenError covers ownership violations: the referenced row exists but
// belongs to a different learner.
type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// StorageError wraps a transactional persistence failure. Safe to retry with
// backoff for idempotent operations; a failed RecordReview leaves no partial
// state behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
