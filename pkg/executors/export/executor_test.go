package export_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdesk/flowdesk/pkg/analysisapi"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/executors/export"
	"github.com/flowdesk/flowdesk/pkg/models"
)

func setupExportServer(t *testing.T, response string) (*analysisapi.Client, *string) {
	t.Helper()

	var requestedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return analysisapi.NewClient(server.URL, slog.Default()), &requestedPath
}

func TestExecutor_Execute(t *testing.T) {
	t.Parallel()

	api, requestedPath := setupExportServer(t, `{"url": "https://files.example.com/export.csv"}`)

	executor := export.New(api)
	node := &models.GraphNode{ID: "e1", Data: map[string]any{"exportType": "csv"}}

	output, err := executor.Execute(context.Background(), node, map[string]any{"dataset": []any{}}, executors.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, "/export/csv", *requestedPath)

	result, ok := output["exportResult"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "csv", result["type"])
	assert.Equal(t, "export.csv", result["fileName"])
	assert.Equal(t, "https://files.example.com/export.csv", result["url"])
	assert.NotEmpty(t, result["timestamp"])
}

func TestExecutor_Execute_FallbackURLAndFileName(t *testing.T) {
	t.Parallel()

	api, _ := setupExportServer(t, `{}`)

	executor := export.New(api)
	node := &models.GraphNode{ID: "e1", Data: map[string]any{"exportType": "pdf", "fileName": "report.pdf"}}

	output, err := executor.Execute(context.Background(), node, map[string]any{}, executors.ExecutionContext{})
	require.NoError(t, err)

	result, ok := output["exportResult"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "report.pdf", result["fileName"])
	assert.Equal(t, "/exports/report.pdf", result["url"])
}

func TestExecutor_Execute_UnsupportedType(t *testing.T) {
	t.Parallel()

	executor := export.New(analysisapi.NewClient("http://localhost:0", slog.Default()))
	node := &models.GraphNode{ID: "e1", Data: map[string]any{"exportType": "parquet"}}

	_, err := executor.Execute(context.Background(), node, map[string]any{}, executors.ExecutionContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export type")
}
