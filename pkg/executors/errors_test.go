package executors_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowdesk/flowdesk/pkg/executors"
)

func TestClassifySuggestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "unsupported node type",
			err:      fmt.Errorf("%w: %q", executors.ErrUnsupportedNodeType, "FooNode"),
			expected: executors.SuggestionUnsupportedType,
		},
		{
			name:     "missing required field",
			err:      fmt.Errorf("%w: datasetId", executors.ErrMissingRequiredField),
			expected: executors.SuggestionMissingField,
		},
		{
			name:     "syscall connection refused",
			err:      fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED),
			expected: executors.SuggestionConnection,
		},
		{
			name:     "errno text only",
			err:      errors.New("request failed: connect ECONNREFUSED 10.0.0.1:443"),
			expected: executors.SuggestionConnection,
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			expected: executors.SuggestionDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, executors.ClassifySuggestion(tt.err))
		})
	}
}

func TestNewExecutionError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("%w: complaintId", executors.ErrMissingRequiredField)
	err := executors.NewExecutionError("node-1", "ComplaintSelectorNode", cause)

	assert.Equal(t, "node-1", err.NodeID)
	assert.Equal(t, "ComplaintSelectorNode", err.NodeType)
	assert.Equal(t, executors.SuggestionMissingField, err.Suggestion)
	assert.Equal(t, "MISSING_REQUIRED_FIELD", err.Details.Code)
	assert.Equal(t, cause.Error(), err.Details.Message)
	assert.NotEmpty(t, err.Details.Stack)
	assert.NotEmpty(t, err.Details.Name)

	assert.Contains(t, err.Error(), "node-1")
	assert.Contains(t, err.Error(), "ComplaintSelectorNode")
	assert.True(t, errors.Is(err, executors.ErrMissingRequiredField))
}
