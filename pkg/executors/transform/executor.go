// Package transform implements the data transformation node.
package transform

import (
	"context"
	"fmt"
	"maps"

	"github.com/flowdesk/flowdesk/pkg/analysisapi"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
)

type Executor struct {
	api *analysisapi.Client
}

func New(api *analysisapi.Client) *Executor {
	return &Executor{api: api}
}

func (e *Executor) ID() string {
	return executors.TypeTransformation
}

func (e *Executor) Schema() map[string]any {
	return nil
}

func (e *Executor) Execute(ctx context.Context, node *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	transformationType := node.DataString("transformationType")
	if transformationType == "" {
		if v, ok := input["transformationType"].(string); ok {
			transformationType = v
		}
	}

	switch transformationType {
	case "filter", "aggregate", "map":
		result, err := e.api.Post(ctx, "transform/"+transformationType, map[string]any{
			"data":       input["dataset"],
			"parameters": node.Data["parameters"],
		})
		if err != nil {
			return nil, fmt.Errorf("%s transformation failed: %w", transformationType, err)
		}

		output := make(map[string]any, len(input)+2)
		maps.Copy(output, input)
		output["dataset"] = result["data"]
		output["transformationResult"] = result

		return output, nil
	default:
		return nil, fmt.Errorf("unsupported transformation type: %q", transformationType)
	}
}
