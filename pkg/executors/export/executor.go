// Package export implements the export node, which hands the dataset to the
// analysis service for rendering into a downloadable file.
package export

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/flowdesk/flowdesk/pkg/analysisapi"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
)

var defaultFileNames = map[string]string{
	"csv":   "export.csv",
	"excel": "export.xlsx",
	"pdf":   "export.pdf",
	"json":  "export.json",
}

type Executor struct {
	api *analysisapi.Client
}

func New(api *analysisapi.Client) *Executor {
	return &Executor{api: api}
}

func (e *Executor) ID() string {
	return executors.TypeExport
}

func (e *Executor) Schema() map[string]any {
	return nil
}

func (e *Executor) Execute(ctx context.Context, node *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	exportType := node.DataString("exportType")
	if exportType == "" {
		if v, ok := input["exportType"].(string); ok {
			exportType = v
		}
	}

	defaultName, ok := defaultFileNames[exportType]
	if !ok {
		return nil, fmt.Errorf("unsupported export type: %q", exportType)
	}

	fileName := node.DataString("fileName")
	if fileName == "" {
		fileName = defaultName
	}

	result, err := e.api.Post(ctx, "export/"+exportType, map[string]any{
		"data":     input["dataset"],
		"fileName": fileName,
	})
	if err != nil {
		return nil, fmt.Errorf("%s export failed: %w", exportType, err)
	}

	url, _ := result["url"].(string)
	if url == "" {
		url = "/exports/" + fileName
	}

	output := make(map[string]any, len(input)+1)
	maps.Copy(output, input)
	output["exportResult"] = map[string]any{
		"type":      exportType,
		"fileName":  fileName,
		"url":       url,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	return output, nil
}
