package domain

import "errors"

// Domain-specific errors for lifecycle and persistence operations.
var (
	// Task errors
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskModified = errors.New("task modified concurrently")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Validation errors
	ErrInvalidStatus     = errors.New("invalid task status")
	ErrInvalidPriority   = errors.New("invalid task priority")
	ErrInvalidRecurrence = errors.New("invalid recurrence type")
)
