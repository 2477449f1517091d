// Package web provides HTTP request and response types for the flow API.
package web

import "github.com/flowdesk/flowdesk/pkg/models"

// CreateInstanceRequest represents the request body for creating a new flow
// instance from a template.
type CreateInstanceRequest struct {
	ProjectID  string         `json:"project_id"  validate:"required"`
	TemplateID string         `json:"template_id" validate:"required"`
	Context    map[string]any `json:"context,omitempty"`
}

// UpdateInstanceRequest represents a structural or data-only instance update.
// Nodes and edges may only be replaced while the instance is a draft; the
// remaining fields are merged in any status.
type UpdateInstanceRequest struct {
	Nodes      []*models.GraphNode          `json:"nodes,omitempty"       validate:"omitempty,dive"`
	Edges      []*models.GraphEdge          `json:"edges,omitempty"       validate:"omitempty,dive"`
	NodeData   map[string]map[string]any    `json:"node_data,omitempty"`
	NodeStates map[string]*models.NodeState `json:"node_states,omitempty"`
	Context    map[string]any               `json:"context,omitempty"`
	Logs       []models.LogEntry            `json:"logs,omitempty"`
}

// CreateTemplateRequest represents the request body for creating a flow
// template.
type CreateTemplateRequest struct {
	Name        string                `json:"name"        validate:"required,min=1"`
	Type        string                `json:"type,omitempty"`
	Version     string                `json:"version,omitempty"`
	Status      models.TemplateStatus `json:"status,omitempty"      validate:"omitempty,oneof=draft published archived"`
	Nodes       []*models.GraphNode   `json:"nodes"       validate:"omitempty,dive"`
	Edges       []*models.GraphEdge   `json:"edges"       validate:"omitempty,dive"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	Description string                `json:"description,omitempty"`
}

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	Name          string `json:"name"           validate:"required,min=1"`
	ProjectNumber string `json:"project_number,omitempty"`
	Description   string `json:"description,omitempty"`
}
