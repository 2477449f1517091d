package file

import (
	"context"
	"sort"

	"github.com/flowdesk/flowdesk/pkg/models"
)

const templatesDir = "templates"

type TemplateRepository struct {
	persistence *Persistence
}

func (r *TemplateRepository) List(ctx context.Context) ([]*models.FlowTemplate, error) {
	ids, err := r.persistence.listIDs(templatesDir)
	if err != nil {
		return nil, err
	}

	templates := make([]*models.FlowTemplate, 0, len(ids))

	for _, id := range ids {
		template, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if template != nil {
			templates = append(templates, template)
		}
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].CreatedAt.After(templates[j].CreatedAt)
	})

	return templates, nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*models.FlowTemplate, error) {
	var template models.FlowTemplate

	found, err := r.persistence.readDocument(templatesDir, id, &template)
	if err != nil || !found {
		return nil, err
	}

	return &template, nil
}

func (r *TemplateRepository) Save(_ context.Context, template *models.FlowTemplate) error {
	return r.persistence.writeDocument(templatesDir, template.ID, template)
}

func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	return r.persistence.removeDocument(templatesDir, id)
}
