// Package visualization implements the chart configuration node.
package visualization

import (
	"context"
	"fmt"
	"maps"

	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
)

var supportedChartTypes = map[string]string{
	"bar":     "Bar chart",
	"line":    "Line chart",
	"scatter": "Scatter plot",
	"pie":     "Pie chart",
}

type Executor struct{}

func New() *Executor {
	return &Executor{}
}

func (e *Executor) ID() string {
	return executors.TypeVisualization
}

func (e *Executor) Schema() map[string]any {
	return nil
}

func (e *Executor) Execute(_ context.Context, node *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	visualizationType := node.DataString("visualizationType")
	if visualizationType == "" {
		if v, ok := input["visualizationType"].(string); ok {
			visualizationType = v
		}
	}

	defaultTitle, ok := supportedChartTypes[visualizationType]
	if !ok {
		return nil, fmt.Errorf("unsupported visualization type: %q", visualizationType)
	}

	options := node.Data["options"]
	if options == nil {
		title := node.DataString("title")
		if title == "" {
			title = defaultTitle
		}

		options = map[string]any{
			"responsive": true,
			"plugins": map[string]any{
				"legend": map[string]any{"position": "top"},
				"title":  map[string]any{"display": true, "text": title},
			},
		}
	}

	output := make(map[string]any, len(input)+1)
	maps.Copy(output, input)
	output["chartConfig"] = map[string]any{
		"type":    visualizationType,
		"data":    input["dataset"],
		"options": options,
	}

	return output, nil
}
