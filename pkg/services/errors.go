// Package services implements the flow instance lifecycle state machine, the
// node execution coordinator, and the template/project services on top of the
// persistence layer.
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flowdesk/flowdesk/pkg/models"
)

var (
	// ErrInvalidTransition indicates a status guard was violated.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrEmptyInput indicates ExecuteNode was called without input data.
	ErrEmptyInput = errors.New("node input must not be empty")

	// ErrUnknownNodeType indicates the node type could not be determined from
	// the request input, the stored node data, or the graph snapshot.
	ErrUnknownNodeType = errors.New("cannot determine node type")

	// ErrUnauthorizedDelete indicates the caller may not delete the instance
	// in its current status.
	ErrUnauthorizedDelete = errors.New("not authorized to delete instance")
)

// InvalidTransitionError names the action, the current status and the
// status(es) the action requires.
type InvalidTransitionError struct {
	InstanceID string
	Action     string
	Current    models.InstanceStatus
	Required   []models.InstanceStatus
}

func (e *InvalidTransitionError) Error() string {
	required := make([]string, 0, len(e.Required))
	for _, status := range e.Required {
		required = append(required, string(status))
	}

	return fmt.Sprintf("cannot %s instance %s: status is %q, requires %s",
		e.Action, e.InstanceID, e.Current, strings.Join(required, " or "))
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func newInvalidTransition(instanceID, action string, current models.InstanceStatus, required ...models.InstanceStatus) *InvalidTransitionError {
	return &InvalidTransitionError{
		InstanceID: instanceID,
		Action:     action,
		Current:    current,
		Required:   required,
	}
}
