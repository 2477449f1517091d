package models

import "time"

// NodeRunStatus defines the possible states of a single node execution.
type NodeRunStatus string

const (
	NodeRunStatusRunning   NodeRunStatus = "running"
	NodeRunStatusCompleted NodeRunStatus = "completed"
	NodeRunStatusFailed    NodeRunStatus = "failed"
)

// NodeState is the per-node execution status record of a flow instance.
// A running node has a StartTime and no EndTime; completion or failure
// always sets EndTime and ExecutionTime.
type NodeState struct {
	Status    NodeRunStatus `json:"status"`
	StartTime *time.Time    `json:"start_time,omitempty"`
	EndTime   *time.Time    `json:"end_time,omitempty"`
	// ExecutionTime is wall-clock seconds of the last attempt.
	ExecutionTime float64 `json:"execution_time,omitempty"`
	// RetryCount counts attempts, including the first. It is incremented on
	// every explicit re-invocation by the caller; there are no automatic
	// retries.
	RetryCount   int           `json:"retry_count"`
	Error        string        `json:"error,omitempty"`
	ErrorDetails *ErrorDetails `json:"error_details,omitempty"`
	Suggestion   string        `json:"suggestion,omitempty"`
}

// ErrorDetails captures diagnostics of a failed node execution.
type ErrorDetails struct {
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
	Code    string `json:"code,omitempty"`
	Name    string `json:"name,omitempty"`
}

// NodeContext is the durable record of what a node consumed and produced in
// its most recent execution.
type NodeContext struct {
	Input         map[string]any `json:"input"`
	Output        map[string]any `json:"output"`
	ExecutionTime float64        `json:"execution_time"`
}

// Clone returns a shallow copy so callers can update a node state without
// mutating the stored record in place.
func (s *NodeState) Clone() *NodeState {
	if s == nil {
		return &NodeState{}
	}

	clone := *s

	return &clone
}
