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

// TemplateService provides CRUD over flow templates. Instances snapshot a
// template at creation time, so template edits never touch existing instances.
type TemplateService struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewTemplateService(p persistence.Persistence, logger *slog.Logger) *TemplateService {
	return &TemplateService{
		persistence: p,
		logger:      logger.With("module", "template_service"),
	}
}

func (s *TemplateService) List(ctx context.Context) ([]*models.FlowTemplate, error) {
	return s.persistence.Templates().List(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id string) (*models.FlowTemplate, error) {
	template, err := s.persistence.Templates().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if template == nil {
		return nil, fmt.Errorf("%w: %s", persistence.ErrTemplateNotFound, id)
	}

	return template, nil
}

func (s *TemplateService) Create(ctx context.Context, template *models.FlowTemplate) (*models.FlowTemplate, error) {
	if template.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		template.ID = id.String()
	}

	if template.Status == "" {
		template.Status = models.TemplateStatusDraft
	}

	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, err
	}

	return template, nil
}

func (s *TemplateService) Update(ctx context.Context, id string, template *models.FlowTemplate) (*models.FlowTemplate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	template.ID = existing.ID
	template.CreatedBy = existing.CreatedBy
	template.CreatedAt = existing.CreatedAt
	template.UpdatedAt = time.Now().UTC()

	if template.Status == "" {
		template.Status = existing.Status
	}

	if err := s.persistence.Templates().Save(ctx, template); err != nil {
		return nil, err
	}

	return template, nil
}

func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	return s.persistence.Templates().Delete(ctx, id)
}
