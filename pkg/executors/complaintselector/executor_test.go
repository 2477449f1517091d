package complaintselector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/executors/complaintselector"
	"github.com/flowdesk/flowdesk/pkg/models"
)

func TestExecutor_Execute(t *testing.T) {
	t.Parallel()

	executor := complaintselector.New()
	node := &models.GraphNode{ID: "select", Type: executors.TypeComplaintSelector}

	output, err := executor.Execute(context.Background(), node, map[string]any{
		"complaintId":     "C-2024-001",
		"complaintDetail": map[string]any{"summary": "late delivery"},
	}, executors.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, "C-2024-001", output["complaintId"])
	assert.Equal(t, map[string]any{"summary": "late delivery"}, output["complaintDetail"])
	assert.Equal(t, "processed", output["status"])
	assert.Contains(t, output["message"], "C-2024-001")
	assert.NotEmpty(t, output["processedAt"])
}

func TestExecutor_Execute_MissingComplaintID(t *testing.T) {
	t.Parallel()

	executor := complaintselector.New()
	node := &models.GraphNode{ID: "select"}

	_, err := executor.Execute(context.Background(), node, map[string]any{"other": "value"}, executors.ExecutionContext{})
	require.ErrorIs(t, err, executors.ErrMissingRequiredField)
}

func TestExecutor_Schema(t *testing.T) {
	t.Parallel()

	schema := complaintselector.New().Schema()
	require.NotNil(t, schema)
	assert.Contains(t, schema["required"], "complaintId")
}
