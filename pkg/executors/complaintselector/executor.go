// Package complaintselector implements the complaint-ticket selector node.
// Legacy graphs reference it by display label only, so the registry treats it
// as a reserved sentinel type.
package complaintselector

import (
	"context"
	"fmt"
	"time"

	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
)

type Executor struct{}

func New() *Executor {
	return &Executor{}
}

func (e *Executor) ID() string {
	return executors.TypeComplaintSelector
}

func (e *Executor) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"complaintId"},
		"properties": map[string]any{
			"complaintId":     map[string]any{"type": "string", "minLength": 1},
			"complaintDetail": map[string]any{"type": "object"},
		},
	}
}

func (e *Executor) Execute(_ context.Context, _ *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	complaintID, _ := input["complaintId"].(string)
	if complaintID == "" {
		return nil, fmt.Errorf("%w: complaintId", executors.ErrMissingRequiredField)
	}

	return map[string]any{
		"complaintId":     complaintID,
		"complaintDetail": input["complaintDetail"],
		"processedAt":     time.Now().UTC().Format(time.RFC3339),
		"status":          "processed",
		"message":         fmt.Sprintf("complaint %s selected", complaintID),
	}, nil
}
