// Package models defines the core domain models for flow templates and instances.
package models

import "time"

// InstanceStatus represents the lifecycle state of a flow instance.
type InstanceStatus string

const (
	InstanceStatusDraft     InstanceStatus = "draft"     // Editable structure, not started
	InstanceStatusRunning   InstanceStatus = "running"   // Started, nodes may be executed
	InstanceStatusPaused    InstanceStatus = "paused"    // Temporarily halted, resumable
	InstanceStatusStopped   InstanceStatus = "stopped"   // Terminal, stopped by an operator
	InstanceStatusCompleted InstanceStatus = "completed" // Terminal
	InstanceStatusFailed    InstanceStatus = "failed"    // Terminal
)

// FlowInstance is one execution (or draft) of a flow template. Nodes and edges
// are a snapshot taken at creation time and are not re-synced with template
// edits. NodeData, NodeStates, NodeContext and Logs are mutated by node
// executions and lifecycle transitions.
type FlowInstance struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"  validate:"required"`
	TemplateID string         `json:"template_id" validate:"required"`
	Status     InstanceStatus `json:"status"`
	Context    map[string]any `json:"context,omitempty"`

	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`

	// NodeData holds the latest merged input/configuration per node ID.
	NodeData map[string]map[string]any `json:"node_data"`
	// NodeStates holds the execution status record per node ID.
	NodeStates map[string]*NodeState `json:"node_states"`
	// NodeContext holds the input consumed and output produced by the most
	// recent execution of each node.
	NodeContext map[string]*NodeContext `json:"node_context"`
	// Logs is append-only; entries are never reordered or edited.
	Logs []LogEntry `json:"logs"`

	StartedAt *time.Time `json:"started_at,omitempty"`
	PausedAt  *time.Time `json:"paused_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node returns the snapshot node with the given ID, or nil.
func (i *FlowInstance) Node(nodeID string) *GraphNode {
	for _, n := range i.Nodes {
		if n.ID == nodeID {
			return n
		}
	}

	return nil
}

// IsTerminal reports whether no further status transition is defined.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusStopped || s == InstanceStatusCompleted || s == InstanceStatusFailed
}
