// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrInstanceNotFound indicates a flow instance was not found by the given identifier.
	ErrInstanceNotFound = errors.New("flow instance not found")

	// ErrTemplateNotFound indicates a flow template was not found by the given identifier.
	ErrTemplateNotFound = errors.New("flow template not found")

	// ErrProjectNotFound indicates a project was not found by the given identifier.
	ErrProjectNotFound = errors.New("project not found")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")
)

// InstanceError wraps instance-related errors with additional context.
type InstanceError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	InstanceID string
	NodeID     string // Node ID if applicable
	Err        error
}

func (e *InstanceError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s operation failed for node %s in instance %s: %v", e.Op, e.NodeID, e.InstanceID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for instance errors.
func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInstanceError creates a new instance error with context.
func NewInstanceError(op, instanceID string, err error) *InstanceError {
	return &InstanceError{
		Op:         op,
		InstanceID: instanceID,
		Err:        err,
	}
}

// IsInstanceNotFound checks if an error indicates a flow instance was not found.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

// IsTemplateNotFound checks if an error indicates a flow template was not found.
func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

// IsProjectNotFound checks if an error indicates a project was not found.
func IsProjectNotFound(err error) bool {
	return errors.Is(err, ErrProjectNotFound)
}

// IsUserNotFound checks if an error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}
