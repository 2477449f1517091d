package services_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/persistence/file"
	"github.com/flowdesk/flowdesk/pkg/services"
)

func setupTemplateService(t *testing.T) *services.TemplateService {
	t.Helper()

	p, err := file.NewPersistence(t.TempDir())
	require.NoError(t, err)

	return services.NewTemplateService(p, slog.Default())
}

func TestTemplateService_Create(t *testing.T) {
	t.Parallel()

	service := setupTemplateService(t)
	ctx := context.Background()

	template, err := service.Create(ctx, &models.FlowTemplate{
		Name:      "Complaint Analysis",
		Nodes:     []*models.GraphNode{{ID: "a", Type: "DataSourceNode"}},
		CreatedBy: "user-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, template.ID)
	assert.Equal(t, models.TemplateStatusDraft, template.Status, "status defaults to draft")
	assert.False(t, template.CreatedAt.IsZero())

	loaded, err := service.Get(ctx, template.ID)
	require.NoError(t, err)
	assert.Equal(t, "Complaint Analysis", loaded.Name)
}

func TestTemplateService_Update(t *testing.T) {
	t.Parallel()

	service := setupTemplateService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, &models.FlowTemplate{
		Name:      "Original",
		Status:    models.TemplateStatusPublished,
		CreatedBy: "user-1",
	})
	require.NoError(t, err)

	updated, err := service.Update(ctx, created.ID, &models.FlowTemplate{
		Name:      "Renamed",
		UpdatedBy: "user-2",
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "user-1", updated.CreatedBy, "creator is preserved")
	assert.Equal(t, models.TemplateStatusPublished, updated.Status, "status sticks when omitted")
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestTemplateService_GetAndDelete_NotFound(t *testing.T) {
	t.Parallel()

	service := setupTemplateService(t)
	ctx := context.Background()

	_, err := service.Get(ctx, "t-none")
	require.ErrorIs(t, err, persistence.ErrTemplateNotFound)

	err = service.Delete(ctx, "t-none")
	require.ErrorIs(t, err, persistence.ErrTemplateNotFound)
}

func TestTemplateService_Delete(t *testing.T) {
	t.Parallel()

	service := setupTemplateService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, &models.FlowTemplate{Name: "Disposable"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, created.ID))

	_, err = service.Get(ctx, created.ID)
	require.ErrorIs(t, err, persistence.ErrTemplateNotFound)

	templates, err := service.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, templates)
}
