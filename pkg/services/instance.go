package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/flowdesk/flowdesk/pkg/authz"
	"github.com/flowdesk/flowdesk/pkg/eventbus"
	"github.com/flowdesk/flowdesk/pkg/events"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/otelhelper"
	"github.com/flowdesk/flowdesk/pkg/persistence"
)

// InstanceService owns the flow instance lifecycle: guarded status
// transitions, structural and data updates, deletion, and single-node
// execution. Every mutating operation runs inside one persistence
// transaction; lifecycle events are published best-effort after commit.
type InstanceService struct {
	persistence persistence.Persistence
	registry    *executors.Registry
	authorizer  *authz.Authorizer
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewInstanceService(
	p persistence.Persistence,
	registry *executors.Registry,
	authorizer *authz.Authorizer,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *InstanceService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("flowdesk")
	}

	return &InstanceService{
		persistence: p,
		registry:    registry,
		authorizer:  authorizer,
		publisher:   publisher,
		tracer:      tracer,
		logger:      logger.With("module", "instance_service"),
	}
}

// CreateInstanceParams carries the inputs of instance creation.
type CreateInstanceParams struct {
	ProjectID  string
	TemplateID string
	Context    map[string]any
	CreatedBy  string
}

// UpdateInstanceParams carries a structural or data-only instance update.
// Nodes/Edges are structural and only allowed while the instance is a draft;
// the remaining fields are merged or appended in any status.
type UpdateInstanceParams struct {
	Nodes      []*models.GraphNode
	Edges      []*models.GraphEdge
	NodeData   map[string]map[string]any
	NodeStates map[string]*models.NodeState
	Context    map[string]any
	Logs       []models.LogEntry
	UpdatedBy  string
}

func (s *InstanceService) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.FlowInstance, error) {
	return s.persistence.Instances().List(ctx, opts)
}

// Get loads an instance or fails with ErrInstanceNotFound.
func (s *InstanceService) Get(ctx context.Context, id string) (*models.FlowInstance, error) {
	instance, err := s.persistence.Instances().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if instance == nil {
		return nil, persistence.NewInstanceError("Get", id, persistence.ErrInstanceNotFound)
	}

	return instance, nil
}

// Create snapshots the template graph into a new draft instance. The project
// and template must both exist.
func (s *InstanceService) Create(ctx context.Context, params CreateInstanceParams) (*models.FlowInstance, error) {
	project, err := s.persistence.Projects().GetByID(ctx, params.ProjectID)
	if err != nil {
		return nil, err
	}

	if project == nil {
		return nil, fmt.Errorf("%w: %s", persistence.ErrProjectNotFound, params.ProjectID)
	}

	template, err := s.persistence.Templates().GetByID(ctx, params.TemplateID)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, fmt.Errorf("%w: %s", persistence.ErrTemplateNotFound, params.TemplateID)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	instance := &models.FlowInstance{
		ID:          id.String(),
		ProjectID:   params.ProjectID,
		TemplateID:  params.TemplateID,
		Status:      models.InstanceStatusDraft,
		Context:     params.Context,
		Nodes:       snapshotNodes(template.Nodes),
		Edges:       snapshotEdges(template.Edges),
		NodeData:    make(map[string]map[string]any),
		NodeStates:  make(map[string]*models.NodeState),
		NodeContext: make(map[string]*models.NodeContext),
		CreatedBy:   params.CreatedBy,
		UpdatedBy:   params.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	repo := s.persistence.Instances()

	err = repo.InTransaction(ctx, func(ctx context.Context, repo persistence.InstanceRepository) error {
		if err := repo.Save(ctx, instance); err != nil {
			return err
		}

		return repo.AppendLogs(ctx, instance.ID, models.NewSystemLog("flow instance created"))
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, instance.ID, events.InstanceCreated{
		BaseEvent:  events.NewBaseEvent(events.InstanceCreatedEvent, instance.ID),
		ProjectID:  instance.ProjectID,
		TemplateID: instance.TemplateID,
		CreatedBy:  instance.CreatedBy,
	})

	return s.Get(ctx, instance.ID)
}

// transitionRule is one row of the status transition table.
type transitionRule struct {
	action   string
	required models.InstanceStatus
	target   models.InstanceStatus
	event    events.EventType
	message  string
	apply    func(instance *models.FlowInstance, now time.Time)
}

var transitionRules = map[string]transitionRule{
	"start": {
		action: "start", required: models.InstanceStatusDraft, target: models.InstanceStatusRunning,
		event: events.InstanceStartedEvent, message: "flow started",
		apply: func(i *models.FlowInstance, now time.Time) { i.StartedAt = &now },
	},
	"pause": {
		action: "pause", required: models.InstanceStatusRunning, target: models.InstanceStatusPaused,
		event: events.InstancePausedEvent, message: "flow paused",
		apply: func(i *models.FlowInstance, now time.Time) { i.PausedAt = &now },
	},
	"resume": {
		action: "resume", required: models.InstanceStatusPaused, target: models.InstanceStatusRunning,
		event: events.InstanceResumedEvent, message: "flow resumed",
		apply: func(i *models.FlowInstance, _ time.Time) { i.PausedAt = nil },
	},
	"stop": {
		action: "stop", required: models.InstanceStatusRunning, target: models.InstanceStatusStopped,
		event: events.InstanceStoppedEvent, message: "flow stopped",
		apply: func(i *models.FlowInstance, now time.Time) { i.EndedAt = &now },
	},
}

func (s *InstanceService) Start(ctx context.Context, id, userID string) (*models.FlowInstance, error) {
	return s.transition(ctx, id, userID, transitionRules["start"])
}

func (s *InstanceService) Pause(ctx context.Context, id, userID string) (*models.FlowInstance, error) {
	return s.transition(ctx, id, userID, transitionRules["pause"])
}

func (s *InstanceService) Resume(ctx context.Context, id, userID string) (*models.FlowInstance, error) {
	return s.transition(ctx, id, userID, transitionRules["resume"])
}

func (s *InstanceService) Stop(ctx context.Context, id, userID string) (*models.FlowInstance, error) {
	return s.transition(ctx, id, userID, transitionRules["stop"])
}

// transition applies one guarded status change. Each status change appends
// exactly one SYSTEM log entry, atomically with the status write.
func (s *InstanceService) transition(ctx context.Context, id, userID string, rule transitionRule) (*models.FlowInstance, error) {
	err := s.persistence.Instances().InTransaction(ctx, func(ctx context.Context, repo persistence.InstanceRepository) error {
		instance, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if instance == nil {
			return persistence.NewInstanceError(rule.action, id, persistence.ErrInstanceNotFound)
		}

		if instance.Status != rule.required {
			return newInvalidTransition(id, rule.action, instance.Status, rule.required)
		}

		now := time.Now().UTC()
		instance.Status = rule.target
		rule.apply(instance, now)
		instance.UpdatedBy = userID
		instance.UpdatedAt = now

		if err := repo.Save(ctx, instance); err != nil {
			return err
		}

		return repo.AppendLogs(ctx, id, models.NewSystemLog(rule.message))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "instance transitioned", "instance_id", id, "action", rule.action, "status", rule.target)

	s.publish(ctx, id, events.InstanceTransitioned{
		BaseEvent: events.NewBaseEvent(rule.event, id),
		Status:    rule.target,
		UpdatedBy: userID,
	})

	return s.Get(ctx, id)
}

// Update applies a structural update (nodes/edges, draft only) or a data-only
// update (nodeData/nodeStates/context/logs, any status). Only the structural
// variant appends a log entry; neither changes the status.
func (s *InstanceService) Update(ctx context.Context, id string, params UpdateInstanceParams) (*models.FlowInstance, error) {
	structural := params.Nodes != nil || params.Edges != nil

	err := s.persistence.Instances().InTransaction(ctx, func(ctx context.Context, repo persistence.InstanceRepository) error {
		instance, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		if instance == nil {
			return persistence.NewInstanceError("Update", id, persistence.ErrInstanceNotFound)
		}

		if structural && instance.Status != models.InstanceStatusDraft {
			return newInvalidTransition(id, "update structure of", instance.Status, models.InstanceStatusDraft)
		}

		if params.Nodes != nil {
			instance.Nodes = params.Nodes
		}

		if params.Edges != nil {
			instance.Edges = params.Edges
		}

		if instance.NodeData == nil {
			instance.NodeData = make(map[string]map[string]any)
		}

		for nodeID, data := range params.NodeData {
			instance.NodeData[nodeID] = mergeMaps(instance.NodeData[nodeID], data)
		}

		if instance.NodeStates == nil {
			instance.NodeStates = make(map[string]*models.NodeState)
		}

		for nodeID, state := range params.NodeStates {
			instance.NodeStates[nodeID] = state
		}

		instance.Context = mergeMaps(instance.Context, params.Context)
		instance.UpdatedBy = params.UpdatedBy
		instance.UpdatedAt = time.Now().UTC()

		if err := repo.Save(ctx, instance); err != nil {
			return err
		}

		if len(params.Logs) > 0 {
			if err := repo.AppendLogs(ctx, id, params.Logs...); err != nil {
				return err
			}
		}

		if structural {
			return repo.AppendLogs(ctx, id, models.NewSystemLog("flow updated"))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, id, events.InstanceTransitioned{
		BaseEvent: events.NewBaseEvent(events.InstanceUpdatedEvent, id),
		UpdatedBy: params.UpdatedBy,
	})

	return s.Get(ctx, id)
}

// Delete removes the instance and its dependent document rows. Draft and
// failed instances are deletable by anyone; any other status requires the
// explicit force flag from the owner or an admin.
func (s *InstanceService) Delete(ctx context.Context, id, userID string, force bool) error {
	instance, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	allowed := instance.Status == models.InstanceStatusDraft || instance.Status == models.InstanceStatusFailed

	if !allowed && force {
		if s.authorizer.IsOwner(instance, userID) {
			allowed = true
		} else {
			admin, err := s.authorizer.IsAdmin(ctx, userID)
			if err != nil {
				return err
			}

			allowed = admin
		}
	}

	if !allowed {
		return fmt.Errorf("%w: instance %s is %s", ErrUnauthorizedDelete, id, instance.Status)
	}

	if err := s.persistence.Instances().Delete(ctx, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "instance deleted", "instance_id", id, "deleted_by", userID, "forced", force)

	s.publish(ctx, id, events.InstanceDeleted{
		BaseEvent: events.NewBaseEvent(events.InstanceDeletedEvent, id),
		DeletedBy: userID,
		Forced:    force,
	})

	return nil
}

// GetLogs returns the instance's execution log in append order.
func (s *InstanceService) GetLogs(ctx context.Context, id string) ([]models.LogEntry, error) {
	instance, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return instance.Logs, nil
}

// GetNodeLogs returns the entries of one node, in append order.
func (s *InstanceService) GetNodeLogs(ctx context.Context, id, nodeID string) ([]models.LogEntry, error) {
	instance, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return models.FilterLogsByNode(instance.Logs, nodeID), nil
}

// ExecuteNode runs exactly one node of one instance inside a single
// transaction. The node outcome is absorbed into nodeStates: the returned
// instance reflects success or failure, but a failing node is not an error of
// this call and never changes the instance status. There are no automatic
// retries and no cascading execution of downstream nodes.
func (s *InstanceService) ExecuteNode(ctx context.Context, instanceID, nodeID string, input map[string]any, userID string) (*models.FlowInstance, error) {
	if instanceID == "" || nodeID == "" {
		return nil, fmt.Errorf("%w: instance and node IDs are required", ErrEmptyInput)
	}

	if len(input) == 0 {
		return nil, fmt.Errorf("%w: node %s", ErrEmptyInput, nodeID)
	}

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "instance.execute_node",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.String(otelhelper.NodeIDKey, nodeID),
	)
	defer span.End()

	var (
		nodeType string
		output   map[string]any
		execErr  *executors.ExecutionError
		elapsed  time.Duration
	)

	err := s.persistence.Instances().InTransaction(ctx, func(ctx context.Context, repo persistence.InstanceRepository) error {
		instance, err := repo.GetByID(ctx, instanceID)
		if err != nil {
			return err
		}

		if instance == nil {
			return persistence.NewInstanceError("ExecuteNode", instanceID, persistence.ErrInstanceNotFound)
		}

		merged := mergeMaps(instance.NodeData[nodeID], input)

		node, err := s.resolveNode(instance, nodeID, merged)
		if err != nil {
			return err
		}

		nodeType = node.Type
		if nodeType == "" {
			nodeType = node.DataString("type")
		}

		markRunning(instance, nodeID, merged, userID)

		if err := repo.Save(ctx, instance); err != nil {
			return err
		}

		if err := repo.AppendLogs(ctx, instanceID, models.NewNodeLog(nodeID, "node execution started")); err != nil {
			return err
		}

		started := time.Now()
		output, err = s.registry.Execute(ctx, node, merged, executors.ExecutionContext{FlowInstance: instance})
		elapsed = time.Since(started)

		state := instance.NodeStates[nodeID].Clone()
		now := time.Now().UTC()
		state.EndTime = &now
		state.ExecutionTime = elapsed.Seconds()

		var entry models.LogEntry

		if err != nil {
			if !errors.As(err, &execErr) {
				// Executors are invoked through the registry, which wraps every
				// failure; anything else is a coordinator bug.
				return persistence.NewInstanceError("ExecuteNode", instanceID, err)
			}

			otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, nodeID))

			state.Status = models.NodeRunStatusFailed
			state.Error = execErr.Details.Message
			state.ErrorDetails = &execErr.Details
			state.Suggestion = execErr.Suggestion
			entry = models.NewNodeLog(nodeID, "node execution failed: "+execErr.Details.Message)
		} else {
			state.Status = models.NodeRunStatusCompleted
			instance.NodeContext[nodeID] = &models.NodeContext{
				Input:         merged,
				Output:        output,
				ExecutionTime: elapsed.Seconds(),
			}
			entry = models.NewNodeLog(nodeID, "node execution completed")
		}

		instance.NodeStates[nodeID] = state
		instance.UpdatedAt = now

		if err := repo.Save(ctx, instance); err != nil {
			return err
		}

		return repo.AppendLogs(ctx, instanceID, entry)
	})
	if err != nil {
		return nil, err
	}

	if execErr != nil {
		s.logger.WarnContext(ctx, "node execution failed",
			"instance_id", instanceID, "node_id", nodeID, "error", execErr.Details.Message, "suggestion", execErr.Suggestion)

		s.publish(ctx, instanceID, events.NodeExecutionFailed{
			BaseEvent:  events.NewBaseEvent(events.NodeExecutionFailedEvent, instanceID),
			NodeID:     nodeID,
			NodeType:   nodeType,
			Error:      execErr.Details.Message,
			Suggestion: execErr.Suggestion,
			Duration:   elapsed,
		})
	} else {
		s.publish(ctx, instanceID, events.NodeExecutionFinished{
			BaseEvent:  events.NewBaseEvent(events.NodeExecutionFinishedEvent, instanceID),
			NodeID:     nodeID,
			NodeType:   nodeType,
			OutputData: output,
			Duration:   elapsed,
		})
	}

	return s.Get(ctx, instanceID)
}

// resolveNode normalizes the duck-typed node shape into a single graph node
// before dispatch. An explicit type in the merged input wins; then the graph
// snapshot; then the legacy label sentinel. Failure here means the request is
// invalid, as opposed to an unregistered type, which is an execution failure.
func (s *InstanceService) resolveNode(instance *models.FlowInstance, nodeID string, merged map[string]any) (*models.GraphNode, error) {
	declared, _ := merged["nodeType"].(string)

	if node := instance.Node(nodeID); node != nil {
		if declared == "" {
			return node, nil
		}

		clone := *node
		clone.Type = declared

		return &clone, nil
	}

	if declared == "" {
		declared, _ = merged["type"].(string)
	}

	label, _ := merged["label"].(string)
	if declared == "" && label != executors.ComplaintSelectorLabel {
		return nil, fmt.Errorf("%w: node %s", ErrUnknownNodeType, nodeID)
	}

	return &models.GraphNode{ID: nodeID, Type: declared, Data: merged}, nil
}

// markRunning records the in-flight node state and merged node data so a
// concurrent reader sees the attempt before the executor returns. RetryCount
// counts attempts, including the first.
func markRunning(instance *models.FlowInstance, nodeID string, merged map[string]any, userID string) {
	if instance.NodeStates == nil {
		instance.NodeStates = make(map[string]*models.NodeState)
	}

	if instance.NodeData == nil {
		instance.NodeData = make(map[string]map[string]any)
	}

	if instance.NodeContext == nil {
		instance.NodeContext = make(map[string]*models.NodeContext)
	}

	now := time.Now().UTC()
	state := instance.NodeStates[nodeID].Clone()
	state.Status = models.NodeRunStatusRunning
	state.StartTime = &now
	state.EndTime = nil
	state.ExecutionTime = 0
	state.Error = ""
	state.ErrorDetails = nil
	state.Suggestion = ""
	state.RetryCount++

	instance.NodeStates[nodeID] = state
	instance.NodeData[nodeID] = merged
	instance.UpdatedBy = userID
	instance.UpdatedAt = now
}

func (s *InstanceService) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.WarnContext(ctx, "event publish failed", "event_type", event.GetType(), "error", err)
	}
}

// mergeMaps unions defaults and overrides; override values win on collision.
func mergeMaps(defaults, overrides map[string]any) map[string]any {
	merged := make(map[string]any, len(defaults)+len(overrides))

	for k, v := range defaults {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}

func snapshotNodes(nodes []*models.GraphNode) []*models.GraphNode {
	snapshot := make([]*models.GraphNode, 0, len(nodes))

	for _, node := range nodes {
		clone := *node
		clone.Data = mergeMaps(node.Data, nil)
		snapshot = append(snapshot, &clone)
	}

	return snapshot
}

func snapshotEdges(edges []*models.GraphEdge) []*models.GraphEdge {
	snapshot := make([]*models.GraphEdge, 0, len(edges))

	for _, edge := range edges {
		clone := *edge
		snapshot = append(snapshot, &clone)
	}

	return snapshot
}
