package file

import (
	"context"
	"sort"

	"github.com/flowdesk/flowdesk/pkg/models"
)

const projectsDir = "projects"

type ProjectRepository struct {
	persistence *Persistence
}

func (r *ProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	ids, err := r.persistence.listIDs(projectsDir)
	if err != nil {
		return nil, err
	}

	projects := make([]*models.Project, 0, len(ids))

	for _, id := range ids {
		project, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if project != nil {
			projects = append(projects, project)
		}
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})

	return projects, nil
}

func (r *ProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	var project models.Project

	found, err := r.persistence.readDocument(projectsDir, id, &project)
	if err != nil || !found {
		return nil, err
	}

	return &project, nil
}

func (r *ProjectRepository) Save(_ context.Context, project *models.Project) error {
	return r.persistence.writeDocument(projectsDir, project.ID, project)
}

func (r *ProjectRepository) Delete(_ context.Context, id string) error {
	return r.persistence.removeDocument(projectsDir, id)
}
