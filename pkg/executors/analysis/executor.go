// Package analysis implements the statistical analysis node, which delegates
// the computation to the external analysis service.
package analysis

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
	return executors.TypeAnalysis
}

func (e *Executor) Schema() map[string]any {
	return nil
}

func (e *Executor) Execute(ctx context.Context, node *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	analysisType := node.DataString("analysisType")
	if analysisType == "" {
		if v, ok := input["analysisType"].(string); ok {
			analysisType = v
		}
	}

	switch analysisType {
	case "correlation":
		result, err := e.api.Post(ctx, "analysis/correlation", map[string]any{
			"data":       input["dataset"],
			"parameters": node.Data["parameters"],
		})
		if err != nil {
			return nil, fmt.Errorf("correlation analysis failed: %w", err)
		}

		output := copyWith(input, "analysisResult", result)
		output["correlationMatrix"] = result["correlationMatrix"]
		output["significantPairs"] = result["significantPairs"]

		return output, nil
	case "anova":
		result, err := e.api.Post(ctx, "analysis/anova", map[string]any{
			"data":       input["dataset"],
			"parameters": node.Data["parameters"],
		})
		if err != nil {
			return nil, fmt.Errorf("anova analysis failed: %w", err)
		}

		output := copyWith(input, "analysisResult", result)
		output["anovaTable"] = result["anovaTable"]
		output["pValue"] = result["pValue"]

		return output, nil
	default:
		return nil, fmt.Errorf("unsupported analysis type: %q", analysisType)
	}
}

func copyWith(input map[string]any, key string, value any) map[string]any {
	output := make(map[string]any, len(input)+3)
	maps.Copy(output, input)
	output[key] = value

	return output
}
