// Package executors provides the node executor protocol and the type-keyed
// registry that dispatches flow-instance nodes to their handlers.
package executors

import (
	"context"

	"github.com/flowdesk/flowdesk/pkg/models"
)

// ExecutionContext gives an executor read access to the enclosing flow
// instance record.
type ExecutionContext struct {
	FlowInstance *models.FlowInstance
}

// Executor performs the actual work for one node type. Implementations must
// be stateless: the same instance is shared across all executions.
type Executor interface {
	// ID returns the node type key this executor is registered under.
	ID() string

	// Schema returns the JSON schema the node input must satisfy, or nil to
	// skip validation.
	Schema() map[string]any

	// Execute runs the node with the merged input. The returned map is
	// propagated unchanged to the caller and recorded as the node's output.
	Execute(ctx context.Context, node *models.GraphNode, input map[string]any, execCtx ExecutionContext) (map[string]any, error)
}
