package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
)

// ProjectService provides the minimal project CRUD the instance lifecycle
// depends on.
type ProjectService struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewProjectService(p persistence.Persistence, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		persistence: p,
		logger:      logger.With("module", "project_service"),
	}
}

func (s *ProjectService) List(ctx context.Context) ([]*models.Project, error) {
	return s.persistence.Projects().List(ctx)
}

func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.persistence.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if project == nil {
		return nil, fmt.Errorf("%w: %s", persistence.ErrProjectNotFound, id)
	}

	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		project.ID = id.String()
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	if err := s.persistence.Projects().Save(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, id string, project *models.Project) (*models.Project, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	project.ID = existing.ID
	project.CreatedBy = existing.CreatedBy
	project.CreatedAt = existing.CreatedAt
	project.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Projects().Save(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	return s.persistence.Projects().Delete(ctx, id)
}
