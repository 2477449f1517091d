package transform_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdesk/flowdesk/pkg/analysisapi"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/executors/transform"
	"github.com/flowdesk/flowdesk/pkg/models"
)

func setupAnalysisServer(t *testing.T, handler http.HandlerFunc) *analysisapi.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return analysisapi.NewClient(server.URL, slog.Default())
}

func TestExecutor_Execute_Filter(t *testing.T) {
	t.Parallel()

	var requestedPath string

	api := setupAnalysisServer(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "data")
		assert.Contains(t, body, "parameters")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"score": 5}], "rowCount": 1}`))
	})

	executor := transform.New(api)
	node := &models.GraphNode{
		ID: "t1",
		Data: map[string]any{
			"transformationType": "filter",
			"parameters":         map[string]any{"column": "score", "op": "gt", "value": float64(3)},
		},
	}

	output, err := executor.Execute(context.Background(), node, map[string]any{
		"dataset": []any{map[string]any{"score": float64(1)}, map[string]any{"score": float64(5)}},
	}, executors.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, "/transform/filter", requestedPath)
	assert.Equal(t, []any{map[string]any{"score": float64(5)}}, output["dataset"])

	result, ok := output["transformationResult"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), result["rowCount"])
}

func TestExecutor_Execute_TypeFromInput(t *testing.T) {
	t.Parallel()

	api := setupAnalysisServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": []}`))
	})

	executor := transform.New(api)
	node := &models.GraphNode{ID: "t1"}

	_, err := executor.Execute(context.Background(), node, map[string]any{
		"transformationType": "aggregate",
		"dataset":            []any{},
	}, executors.ExecutionContext{})
	require.NoError(t, err)
}

func TestExecutor_Execute_UnsupportedType(t *testing.T) {
	t.Parallel()

	executor := transform.New(analysisapi.NewClient("http://localhost:0", slog.Default()))
	node := &models.GraphNode{ID: "t1", Data: map[string]any{"transformationType": "pivot"}}

	_, err := executor.Execute(context.Background(), node, map[string]any{"dataset": []any{}}, executors.ExecutionContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transformation type")
}

func TestExecutor_Execute_ServiceError(t *testing.T) {
	t.Parallel()

	api := setupAnalysisServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad parameters", http.StatusUnprocessableEntity)
	})

	executor := transform.New(api)
	node := &models.GraphNode{ID: "t1", Data: map[string]any{"transformationType": "map"}}

	_, err := executor.Execute(context.Background(), node, map[string]any{"dataset": []any{}}, executors.ExecutionContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "map transformation failed")
	assert.Contains(t, err.Error(), "422")
}
