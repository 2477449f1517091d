package services_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdesk/flowdesk/pkg/authz"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/persistence/file"
	"github.com/flowdesk/flowdesk/pkg/services"
)

const (
	testProjectID  = "0191a000-0000-7000-8000-000000000001"
	testTemplateID = "0191a000-0000-7000-8000-000000000002"
	ownerID        = "user-owner"
	adminID        = "user-admin"
	strangerID     = "user-stranger"
)

type echoExecutor struct{}

func (echoExecutor) ID() string             { return "EchoNode" }
func (echoExecutor) Schema() map[string]any { return nil }

func (echoExecutor) Execute(_ context.Context, _ *models.GraphNode, input map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	return input, nil
}

type failingExecutor struct {
	err error
}

func (failingExecutor) ID() string             { return "FailingNode" }
func (failingExecutor) Schema() map[string]any { return nil }

func (f failingExecutor) Execute(_ context.Context, _ *models.GraphNode, _ map[string]any, _ executors.ExecutionContext) (map[string]any, error) {
	return nil, f.err
}

func setupInstanceService(t *testing.T) (*services.InstanceService, persistence.Persistence) {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	logger := slog.Default()

	registry := executors.NewRegistry(logger)
	registry.Register(echoExecutor{})
	registry.Register(failingExecutor{err: fmt.Errorf("connect ECONNREFUSED 10.0.0.1:443")})

	ctx := context.Background()

	require.NoError(t, p.Projects().Save(ctx, &models.Project{ID: testProjectID, Name: "Test Project"}))
	require.NoError(t, p.Templates().Save(ctx, &models.FlowTemplate{
		ID:     testTemplateID,
		Name:   "Test Template",
		Status: models.TemplateStatusPublished,
		Nodes: []*models.GraphNode{
			{ID: "A", Type: "EchoNode"},
			{ID: "B", Type: "FailingNode"},
			{ID: "C", Type: "EchoNode"},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "A", Target: "B"},
			{ID: "e2", Source: "B", Target: "C"},
		},
	}))
	require.NoError(t, p.Users().Save(ctx, &models.User{ID: ownerID, Username: "owner"}))
	require.NoError(t, p.Users().Save(ctx, &models.User{ID: adminID, Username: "admin", Roles: []string{"admin"}}))
	require.NoError(t, p.Users().Save(ctx, &models.User{ID: strangerID, Username: "stranger"}))

	authorizer := authz.NewAuthorizer(p.Users(), logger)
	service := services.NewInstanceService(p, registry, authorizer, nil, nil, logger)

	return service, p
}

func createTestInstance(t *testing.T, service *services.InstanceService) *models.FlowInstance {
	t.Helper()

	instance, err := service.Create(context.Background(), services.CreateInstanceParams{
		ProjectID:  testProjectID,
		TemplateID: testTemplateID,
		CreatedBy:  ownerID,
	})
	require.NoError(t, err)

	return instance
}

func startedTestInstance(t *testing.T, service *services.InstanceService) *models.FlowInstance {
	t.Helper()

	instance := createTestInstance(t, service)

	started, err := service.Start(context.Background(), instance.ID, ownerID)
	require.NoError(t, err)

	return started
}

func TestInstanceService_Create(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := createTestInstance(t, service)

	assert.Equal(t, models.InstanceStatusDraft, instance.Status)
	assert.Equal(t, testProjectID, instance.ProjectID)
	assert.Equal(t, testTemplateID, instance.TemplateID)
	assert.Len(t, instance.Nodes, 3)
	assert.Len(t, instance.Edges, 2)
	assert.Empty(t, instance.NodeStates)
	assert.Nil(t, instance.StartedAt)

	require.Len(t, instance.Logs, 1)
	assert.Equal(t, models.LogTypeSystem, instance.Logs[0].Type)
	assert.Equal(t, "flow instance created", instance.Logs[0].Message)
	assert.False(t, instance.Logs[0].Timestamp.IsZero())
}

func TestInstanceService_Create_MissingReferences(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, services.CreateInstanceParams{
		ProjectID:  "0191a000-dead-7000-8000-000000000000",
		TemplateID: testTemplateID,
	})
	require.ErrorIs(t, err, persistence.ErrProjectNotFound)

	_, err = service.Create(ctx, services.CreateInstanceParams{
		ProjectID:  testProjectID,
		TemplateID: "0191a000-dead-7000-8000-000000000000",
	})
	require.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestInstanceService_Create_SnapshotsTemplateGraph(t *testing.T) {
	t.Parallel()

	service, p := setupInstanceService(t)
	instance := createTestInstance(t, service)
	ctx := context.Background()

	// Editing the template must not touch the instance snapshot.
	template, err := p.Templates().GetByID(ctx, testTemplateID)
	require.NoError(t, err)

	template.Nodes = template.Nodes[:1]
	require.NoError(t, p.Templates().Save(ctx, template))

	reloaded, err := service.Get(ctx, instance.ID)
	require.NoError(t, err)
	assert.Len(t, reloaded.Nodes, 3)
}

func TestInstanceService_StartGuards(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := createTestInstance(t, service)
	ctx := context.Background()

	started, err := service.Start(ctx, instance.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusRunning, started.Status)
	require.NotNil(t, started.StartedAt)
	require.Len(t, started.Logs, 2)
	assert.Equal(t, "flow started", started.Logs[1].Message)

	_, err = service.Start(ctx, instance.ID, ownerID)
	require.ErrorIs(t, err, services.ErrInvalidTransition)

	var transitionErr *services.InvalidTransitionError

	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.InstanceStatusRunning, transitionErr.Current)
	assert.Equal(t, []models.InstanceStatus{models.InstanceStatusDraft}, transitionErr.Required)

	unchanged, err := service.Get(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusRunning, unchanged.Status)
	assert.Len(t, unchanged.Logs, 2)
}

func TestInstanceService_PauseResume(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	paused, err := service.Pause(ctx, instance.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusPaused, paused.Status)
	require.NotNil(t, paused.PausedAt)
	assert.Equal(t, "flow paused", paused.Logs[len(paused.Logs)-1].Message)

	resumed, err := service.Resume(ctx, instance.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusRunning, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Equal(t, "flow resumed", resumed.Logs[len(resumed.Logs)-1].Message)

	// Pausing a draft instance violates the guard.
	_, err = service.Pause(ctx, createTestInstance(t, service).ID, ownerID)
	require.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestInstanceService_Stop(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	stopped, err := service.Stop(ctx, instance.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusStopped, stopped.Status)
	require.NotNil(t, stopped.EndedAt)
	assert.Equal(t, "flow stopped", stopped.Logs[len(stopped.Logs)-1].Message)

	// stopped is terminal
	_, err = service.Stop(ctx, instance.ID, ownerID)
	require.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestInstanceService_ExecuteNode_Success(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	updated, err := service.ExecuteNode(ctx, instance.ID, "A", map[string]any{"complaintId": "C-100"}, ownerID)
	require.NoError(t, err)

	state := updated.NodeStates["A"]
	require.NotNil(t, state)
	assert.Equal(t, models.NodeRunStatusCompleted, state.Status)
	assert.Equal(t, 1, state.RetryCount)
	require.NotNil(t, state.StartTime)
	require.NotNil(t, state.EndTime)
	assert.Empty(t, state.Error)

	nodeCtx := updated.NodeContext["A"]
	require.NotNil(t, nodeCtx)
	assert.Equal(t, "C-100", nodeCtx.Input["complaintId"])
	assert.Equal(t, "C-100", nodeCtx.Output["complaintId"])

	assert.Equal(t, "C-100", updated.NodeData["A"]["complaintId"])

	nodeLogs := models.FilterLogsByNode(updated.Logs, "A")
	require.Len(t, nodeLogs, 2)
	assert.Equal(t, "node execution started", nodeLogs[0].Message)
	assert.Equal(t, "node execution completed", nodeLogs[1].Message)
}

func TestInstanceService_ExecuteNode_EmptyInput(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	before, err := service.Get(ctx, instance.ID)
	require.NoError(t, err)

	_, err = service.ExecuteNode(ctx, instance.ID, "B", map[string]any{}, ownerID)
	require.ErrorIs(t, err, services.ErrEmptyInput)

	after, err := service.Get(ctx, instance.ID)
	require.NoError(t, err)
	assert.Equal(t, before.NodeStates, after.NodeStates)
	assert.Len(t, after.Logs, len(before.Logs))
}

func TestInstanceService_ExecuteNode_FailureIsolation(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	// The executor raises ECONNREFUSED; the call itself still succeeds.
	updated, err := service.ExecuteNode(ctx, instance.ID, "B", map[string]any{"dataset": []any{}}, ownerID)
	require.NoError(t, err)

	assert.Equal(t, models.InstanceStatusRunning, updated.Status)

	state := updated.NodeStates["B"]
	require.NotNil(t, state)
	assert.Equal(t, models.NodeRunStatusFailed, state.Status)
	assert.Contains(t, state.Error, "ECONNREFUSED")
	assert.Contains(t, state.Suggestion, "network connectivity")
	require.NotNil(t, state.ErrorDetails)
	assert.Equal(t, "ECONNREFUSED", state.ErrorDetails.Code)
	assert.NotEmpty(t, state.ErrorDetails.Stack)
	require.NotNil(t, state.EndTime)

	nodeLogs := models.FilterLogsByNode(updated.Logs, "B")
	require.Len(t, nodeLogs, 2)
	assert.Contains(t, nodeLogs[1].Message, "node execution failed")
}

func TestInstanceService_ExecuteNode_UnsupportedTypeAbsorbed(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	// Point node C at a type nothing is registered for.
	updated, err := service.ExecuteNode(ctx, instance.ID, "C", map[string]any{"nodeType": "MysteryNode"}, ownerID)
	require.NoError(t, err)

	state := updated.NodeStates["C"]
	require.NotNil(t, state)
	assert.Equal(t, models.NodeRunStatusFailed, state.Status)
	assert.Contains(t, state.Suggestion, "contact the system administrator")
	assert.Equal(t, "UNSUPPORTED_NODE_TYPE", state.ErrorDetails.Code)
}

func TestInstanceService_ExecuteNode_UnknownNode(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	_, err := service.ExecuteNode(ctx, instance.ID, "missing", map[string]any{"foo": "bar"}, ownerID)
	require.ErrorIs(t, err, services.ErrUnknownNodeType)

	// Nothing was marked running for the unknown node.
	after, err := service.Get(ctx, instance.ID)
	require.NoError(t, err)
	assert.NotContains(t, after.NodeStates, "missing")
}

func TestInstanceService_ExecuteNode_MergeSemantics(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	_, err := service.ExecuteNode(ctx, instance.ID, "A", map[string]any{"complaintId": "C-1", "region": "north"}, ownerID)
	require.NoError(t, err)

	updated, err := service.ExecuteNode(ctx, instance.ID, "A", map[string]any{"complaintId": "C-2", "limit": float64(10)}, ownerID)
	require.NoError(t, err)

	data := updated.NodeData["A"]
	assert.Equal(t, "C-2", data["complaintId"], "second call wins on collision")
	assert.Equal(t, "north", data["region"], "earlier keys carried forward")
	assert.Equal(t, float64(10), data["limit"])

	assert.Equal(t, 2, updated.NodeStates["A"].RetryCount)
}

func TestInstanceService_ExecuteNode_NotFound(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)

	_, err := service.ExecuteNode(context.Background(), "0191a000-dead-7000-8000-000000000000", "A", map[string]any{"x": 1}, ownerID)
	require.ErrorIs(t, err, persistence.ErrInstanceNotFound)
}

func TestInstanceService_Update_StructuralGuard(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	ctx := context.Background()

	draft := createTestInstance(t, service)

	updated, err := service.Update(ctx, draft.ID, services.UpdateInstanceParams{
		Nodes:     []*models.GraphNode{{ID: "A", Type: "EchoNode"}},
		Edges:     []*models.GraphEdge{},
		UpdatedBy: ownerID,
	})
	require.NoError(t, err)
	assert.Len(t, updated.Nodes, 1)
	assert.Equal(t, "flow updated", updated.Logs[len(updated.Logs)-1].Message)

	running := startedTestInstance(t, service)

	_, err = service.Update(ctx, running.ID, services.UpdateInstanceParams{
		Nodes:     []*models.GraphNode{{ID: "X"}},
		UpdatedBy: ownerID,
	})
	require.ErrorIs(t, err, services.ErrInvalidTransition)
}

func TestInstanceService_Update_DataOnlyAnyStatus(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	ctx := context.Background()

	running := startedTestInstance(t, service)
	logCount := len(running.Logs)

	updated, err := service.Update(ctx, running.ID, services.UpdateInstanceParams{
		NodeData:  map[string]map[string]any{"A": {"preset": true}},
		Context:   map[string]any{"locale": "zh-TW"},
		UpdatedBy: ownerID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InstanceStatusRunning, updated.Status)
	assert.Equal(t, true, updated.NodeData["A"]["preset"])
	assert.Equal(t, "zh-TW", updated.Context["locale"])
	assert.Len(t, updated.Logs, logCount, "data-only update appends no log entry")
}

func TestInstanceService_LogMonotonicity(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	ctx := context.Background()

	instance := createTestInstance(t, service)

	var previous []models.LogEntry

	checkMonotonic := func(current []models.LogEntry) {
		require.GreaterOrEqual(t, len(current), len(previous))

		for i, entry := range previous {
			assert.Equal(t, entry.Type, current[i].Type)
			assert.Equal(t, entry.Message, current[i].Message)
			assert.True(t, entry.Timestamp.Equal(current[i].Timestamp))
		}

		previous = current
	}

	checkMonotonic(instance.Logs)

	started, err := service.Start(ctx, instance.ID, ownerID)
	require.NoError(t, err)
	checkMonotonic(started.Logs)

	executed, err := service.ExecuteNode(ctx, instance.ID, "A", map[string]any{"k": "v"}, ownerID)
	require.NoError(t, err)
	checkMonotonic(executed.Logs)

	paused, err := service.Pause(ctx, instance.ID, ownerID)
	require.NoError(t, err)
	checkMonotonic(paused.Logs)
}

func TestInstanceService_Delete_Guard(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	ctx := context.Background()

	t.Run("draft deletable without force", func(t *testing.T) {
		t.Parallel()

		instance := createTestInstance(t, service)
		require.NoError(t, service.Delete(ctx, instance.ID, strangerID, false))

		_, err := service.Get(ctx, instance.ID)
		require.ErrorIs(t, err, persistence.ErrInstanceNotFound)
	})

	t.Run("running rejects non-owner non-admin", func(t *testing.T) {
		t.Parallel()

		instance := startedTestInstance(t, service)

		err := service.Delete(ctx, instance.ID, strangerID, false)
		require.ErrorIs(t, err, services.ErrUnauthorizedDelete)

		err = service.Delete(ctx, instance.ID, strangerID, true)
		require.ErrorIs(t, err, services.ErrUnauthorizedDelete)
	})

	t.Run("running rejects owner without force", func(t *testing.T) {
		t.Parallel()

		instance := startedTestInstance(t, service)

		err := service.Delete(ctx, instance.ID, ownerID, false)
		require.ErrorIs(t, err, services.ErrUnauthorizedDelete)
	})

	t.Run("running allows owner with force", func(t *testing.T) {
		t.Parallel()

		instance := startedTestInstance(t, service)
		require.NoError(t, service.Delete(ctx, instance.ID, ownerID, true))
	})

	t.Run("running allows admin with force", func(t *testing.T) {
		t.Parallel()

		instance := startedTestInstance(t, service)
		require.NoError(t, service.Delete(ctx, instance.ID, adminID, true))
	})
}

func TestInstanceService_GetNodeLogs(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	instance := startedTestInstance(t, service)
	ctx := context.Background()

	_, err := service.ExecuteNode(ctx, instance.ID, "A", map[string]any{"k": "v"}, ownerID)
	require.NoError(t, err)

	logs, err := service.GetLogs(ctx, instance.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 4)

	nodeLogs, err := service.GetNodeLogs(ctx, instance.ID, "A")
	require.NoError(t, err)
	require.Len(t, nodeLogs, 2)

	for _, entry := range nodeLogs {
		assert.Equal(t, models.LogTypeNode, entry.Type)
		assert.Equal(t, "A", entry.NodeID)
	}
}

func TestInstanceService_List(t *testing.T) {
	t.Parallel()

	service, _ := setupInstanceService(t)
	ctx := context.Background()

	createTestInstance(t, service)
	startedTestInstance(t, service)

	all, err := service.List(ctx, persistence.ListInstancesOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	running := models.InstanceStatusRunning
	filtered, err := service.List(ctx, persistence.ListInstancesOptions{Status: &running})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, models.InstanceStatusRunning, filtered[0].Status)

	none, err := service.List(ctx, persistence.ListInstancesOptions{ProjectID: "0191a000-dead-7000-8000-000000000000"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvalidTransitionError_Message(t *testing.T) {
	t.Parallel()

	err := &services.InvalidTransitionError{
		InstanceID: "abc",
		Action:     "start",
		Current:    models.InstanceStatusRunning,
		Required:   []models.InstanceStatus{models.InstanceStatusDraft},
	}

	assert.Contains(t, err.Error(), `status is "running"`)
	assert.Contains(t, err.Error(), "requires draft")
	assert.True(t, errors.Is(err, services.ErrInvalidTransition))
}
