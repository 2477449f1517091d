package executors

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/flowdesk/flowdesk/pkg/models"
)

// Sentinel errors raised by the registry and by built-in executors. Executors
// wrap them with context (fmt.Errorf("%w: datasetId", ErrMissingRequiredField))
// so the suggestion classifier can still match.
var (
	// ErrUnsupportedNodeType indicates no executor is registered for the type
	// and no category heuristic matched.
	ErrUnsupportedNodeType = errors.New("unsupported node type")

	// ErrMissingRequiredField indicates the node input lacks a required field.
	ErrMissingRequiredField = errors.New("missing required field")

	// ErrInvalidInput indicates the input failed schema validation.
	ErrInvalidInput = errors.New("invalid node input")
)

// Operator-facing suggestions attached to failed node executions.
const (
	SuggestionUnsupportedType = "the node type is not supported, contact the system administrator"
	SuggestionMissingField    = "make sure all required input data is provided"
	SuggestionConnection      = "unable to reach the external service, check network connectivity"
	SuggestionDefault         = "check the input data and retry"
)

// ExecutionError carries the original executor failure plus the diagnostics
// recorded into the instance's node state.
type ExecutionError struct {
	NodeID     string
	NodeType   string
	Err        error
	Suggestion string
	Details    models.ErrorDetails
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution of node %s (%s) failed: %v", e.NodeID, e.NodeType, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError wraps an executor failure, classifying a suggestion and
// capturing stack/diagnostic detail.
func NewExecutionError(nodeID, nodeType string, err error) *ExecutionError {
	return &ExecutionError{
		NodeID:     nodeID,
		NodeType:   nodeType,
		Err:        err,
		Suggestion: ClassifySuggestion(err),
		Details: models.ErrorDetails{
			Message: err.Error(),
			Stack:   string(debug.Stack()),
			Code:    errorCode(err),
			Name:    fmt.Sprintf("%T", err),
		},
	}
}

// ClassifySuggestion inspects a node execution failure and picks the
// operator-facing suggestion recorded alongside it.
func ClassifySuggestion(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedNodeType):
		return SuggestionUnsupportedType
	case errors.Is(err, ErrMissingRequiredField):
		return SuggestionMissingField
	case isConnectionRefused(err):
		return SuggestionConnection
	default:
		return SuggestionDefault
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedNodeType):
		return "UNSUPPORTED_NODE_TYPE"
	case errors.Is(err, ErrMissingRequiredField):
		return "MISSING_REQUIRED_FIELD"
	case errors.Is(err, ErrInvalidInput):
		return "INVALID_INPUT"
	case isConnectionRefused(err):
		return "ECONNREFUSED"
	default:
		return ""
	}
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	// External clients often surface the raw errno text only.
	msg := err.Error()

	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "ECONNREFUSED")
}
