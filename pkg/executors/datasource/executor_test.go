package datasource_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/executors/datasource"
	"github.com/flowdesk/flowdesk/pkg/models"
)

func TestExecutor_Execute(t *testing.T) {
	t.Parallel()

	executor := datasource.New()
	ctx := context.Background()

	tests := []struct {
		name           string
		node           *models.GraphNode
		input          map[string]any
		expectErr      error
		validateResult func(t *testing.T, output map[string]any)
	}{
		{
			name:  "dataset source from node data",
			node:  &models.GraphNode{ID: "src", Data: map[string]any{"sourceType": "dataset", "datasetId": "ds-1"}},
			input: map[string]any{"trigger": true},
			validateResult: func(t *testing.T, output map[string]any) {
				dataset, ok := output["dataset"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "ds-1", dataset["id"])
			},
		},
		{
			name:  "dataset source from input",
			node:  &models.GraphNode{ID: "src"},
			input: map[string]any{"sourceType": "dataset", "datasetId": "ds-2"},
			validateResult: func(t *testing.T, output map[string]any) {
				dataset, ok := output["dataset"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, "ds-2", dataset["id"])
			},
		},
		{
			name:      "dataset source without id",
			node:      &models.GraphNode{ID: "src", Data: map[string]any{"sourceType": "dataset"}},
			input:     map[string]any{"trigger": true},
			expectErr: executors.ErrMissingRequiredField,
		},
		{
			name:  "inline source",
			node:  &models.GraphNode{ID: "src", Data: map[string]any{"sourceType": "inline"}},
			input: map[string]any{"dataset": []any{map[string]any{"a": float64(1)}}},
			validateResult: func(t *testing.T, output map[string]any) {
				assert.Equal(t, []any{map[string]any{"a": float64(1)}}, output["dataset"])
			},
		},
		{
			name:      "inline source without dataset",
			node:      &models.GraphNode{ID: "src", Data: map[string]any{"sourceType": "inline"}},
			input:     map[string]any{"trigger": true},
			expectErr: executors.ErrMissingRequiredField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			output, err := executor.Execute(ctx, tt.node, tt.input, executors.ExecutionContext{})

			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)

				return
			}

			require.NoError(t, err)
			tt.validateResult(t, output)
		})
	}
}

func TestExecutor_Execute_UnsupportedSourceType(t *testing.T) {
	t.Parallel()

	executor := datasource.New()
	node := &models.GraphNode{ID: "src", Data: map[string]any{"sourceType": "ftp"}}

	_, err := executor.Execute(context.Background(), node, map[string]any{"trigger": true}, executors.ExecutionContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported data source type")
}
