// Package datasource implements the data-source node, which loads the dataset
// downstream nodes operate on.
package datasource

import (
	"context"
	"fmt"

	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
)

type Executor struct{}

func New() *Executor {
	return &Executor{}
}

func (e *Executor) ID() string {
	return executors.TypeDataSource
}

func (e *Executor) Schema() map[string]any {
	return nil
}

func (e *Executor) Execute(_ context.Context, node *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	sourceType := stringField(node, input, "sourceType")

	switch sourceType {
	case "dataset":
		datasetID := stringField(node, input, "datasetId")
		if datasetID == "" {
			return nil, fmt.Errorf("%w: datasetId", executors.ErrMissingRequiredField)
		}

		return map[string]any{
			"dataset": map[string]any{
				"id":      datasetID,
				"columns": []any{},
				"rows":    []any{},
			},
		}, nil
	case "inline":
		dataset, ok := input["dataset"]
		if !ok {
			return nil, fmt.Errorf("%w: dataset", executors.ErrMissingRequiredField)
		}

		return map[string]any{"dataset": dataset}, nil
	default:
		return nil, fmt.Errorf("unsupported data source type: %q", sourceType)
	}
}

// stringField reads a config value from the node data, falling back to the
// merged input.
func stringField(node *models.GraphNode, input map[string]any, key string) string {
	if v := node.DataString(key); v != "" {
		return v
	}

	if v, ok := input[key].(string); ok {
		return v
	}

	return ""
}
