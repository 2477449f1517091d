package models

import "time"

// TemplateStatus represents the lifecycle state of a flow template.
type TemplateStatus string

const (
	TemplateStatusDraft     TemplateStatus = "draft"
	TemplateStatusPublished TemplateStatus = "published"
	TemplateStatusArchived  TemplateStatus = "archived"
)

// FlowTemplate is a reusable node/edge graph definition from which instances
// are created.
type FlowTemplate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"    validate:"required,min=1"`
	Type        string         `json:"type,omitempty"`
	Version     string         `json:"version,omitempty"`
	Status      TemplateStatus `json:"status"`
	Nodes       []*GraphNode   `json:"nodes"`
	Edges       []*GraphEdge   `json:"edges"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Description string         `json:"description,omitempty"`
	CreatedBy   string         `json:"created_by"`
	UpdatedBy   string         `json:"updated_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
