package executors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/flowdesk/flowdesk/pkg/models"
)

// Node type keys of the built-in executors. Legacy graph records reference
// these exact strings.
const (
	TypeDataSource        = "DataSourceNode"
	TypeTransformation    = "TransformationNode"
	TypeAnalysis          = "AnalysisNode"
	TypeVisualization     = "VisualizationNode"
	TypeExport            = "ExportNode"
	TypeComplaintSelector = "ComplaintSelectorNode"
)

// ComplaintSelectorLabel is the display label legacy complaint-selector nodes
// carry instead of a type. Nodes with this label always resolve to the
// complaint selector executor, regardless of other fields.
const ComplaintSelectorLabel = "客訴單號選擇器"

// categoryRule maps a type-substring fragment and a data.category value to a
// registered type key. Historical node data is inconsistently tagged, so the
// registry degrades to these heuristics rather than hard-failing.
type categoryRule struct {
	fragment string
	category string
	typeKey  string
}

var categoryRules = []categoryRule{
	{"DataSource", "dataSource", TypeDataSource},
	{"Transform", "transformation", TypeTransformation},
	{"Analysis", "analysis", TypeAnalysis},
	{"Visualization", "visualization", TypeVisualization},
	{"Export", "export", TypeExport},
}

// Registry resolves a node's declared or inferred type to a concrete executor
// and invokes it uniformly. Construct one at process startup and inject it;
// registration is not synchronized for concurrent use.
type Registry struct {
	logger    *slog.Logger
	executors map[string]Executor
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		executors: make(map[string]Executor),
	}
}

// Register associates the executor with its type key. The last registration
// for a key wins.
func (r *Registry) Register(executor Executor) {
	r.executors[executor.ID()] = executor
}

// RegisteredTypes returns the registered type keys.
func (r *Registry) RegisteredTypes() []string {
	types := make([]string, 0, len(r.executors))
	for typeKey := range r.executors {
		types = append(types, typeKey)
	}

	return types
}

// HealthCheck reports whether any executors are registered.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.executors) == 0 {
		return "no node executors registered", false
	}

	return fmt.Sprintf("%d node executors registered", len(r.executors)), true
}

// Resolve finds the executor for a node. Resolution strategies are tried in
// order, first match wins: the complaint-selector sentinel, exact type-key
// lookup, then category/substring heuristics.
func (r *Registry) Resolve(node *models.GraphNode) (Executor, error) {
	strategies := []func(*models.GraphNode) (Executor, bool){
		r.resolveSentinel,
		r.resolveExactType,
		r.resolveCategory,
	}

	for _, strategy := range strategies {
		if executor, ok := strategy(node); ok {
			return executor, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedNodeType, declaredType(node))
}

func (r *Registry) resolveSentinel(node *models.GraphNode) (Executor, bool) {
	if node.DataString("label") == ComplaintSelectorLabel || declaredType(node) == TypeComplaintSelector {
		executor, ok := r.executors[TypeComplaintSelector]

		return executor, ok
	}

	return nil, false
}

func (r *Registry) resolveExactType(node *models.GraphNode) (Executor, bool) {
	executor, ok := r.executors[declaredType(node)]

	return executor, ok
}

func (r *Registry) resolveCategory(node *models.GraphNode) (Executor, bool) {
	nodeType := declaredType(node)
	category := node.DataString("category")

	for _, rule := range categoryRules {
		if (nodeType != "" && strings.Contains(nodeType, rule.fragment)) || (category != "" && category == rule.category) {
			if executor, ok := r.executors[rule.typeKey]; ok {
				r.logger.Debug("resolved node executor by category heuristic",
					"node_id", node.ID, "declared_type", nodeType, "executor", rule.typeKey)

				return executor, true
			}
		}
	}

	return nil, false
}

// declaredType normalizes the duck-typed node shape: node.Type wins, else
// node.Data["type"].
func declaredType(node *models.GraphNode) string {
	if node.Type != "" {
		return node.Type
	}

	return node.DataString("type")
}

// Execute resolves the node's executor, validates the input against the
// executor's schema when one is declared, and invokes it. Success values are
// propagated unchanged; failures come back as *ExecutionError carrying the
// original message, a classified suggestion, and diagnostics.
func (r *Registry) Execute(ctx context.Context, node *models.GraphNode, input map[string]any, execCtx ExecutionContext) (map[string]any, error) {
	executor, err := r.Resolve(node)
	if err != nil {
		return nil, NewExecutionError(node.ID, declaredType(node), err)
	}

	if schema := executor.Schema(); schema != nil {
		if err := validateInput(schema, input); err != nil {
			return nil, NewExecutionError(node.ID, executor.ID(), err)
		}
	}

	output, err := executor.Execute(ctx, node, input, execCtx)
	if err != nil {
		return nil, NewExecutionError(node.ID, executor.ID(), err)
	}

	return output, nil
}

func validateInput(schema map[string]any, input map[string]any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(input))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if !result.Valid() {
		violations := make([]string, 0, len(result.Errors()))
		for _, violation := range result.Errors() {
			violations = append(violations, violation.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(violations, "; "))
	}

	return nil
}
