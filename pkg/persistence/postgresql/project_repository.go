package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowdesk/flowdesk/pkg/models"
)

// ProjectRepository handles project database operations.
type ProjectRepository struct {
	db     querier
	logger *slog.Logger
}

const projectColumns = `
	id
  , name
  , project_number
  , description
  , created_by
  , created_at
  , updated_at
`

func (r *ProjectRepository) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	projects := make([]*models.Project, 0)

	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}

		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = $1", id)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	return project, nil
}

func (r *ProjectRepository) Save(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, name, project_number, description, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			project_number = EXCLUDED.project_number,
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		project.ID,
		project.Name,
		project.ProjectNumber,
		project.Description,
		project.CreatedBy,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}

	return nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

func scanProject(row rowScanner) (*models.Project, error) {
	var (
		project       models.Project
		projectNumber sql.NullString
		description   sql.NullString
		createdBy     sql.NullString
	)

	err := row.Scan(
		&project.ID,
		&project.Name,
		&projectNumber,
		&description,
		&createdBy,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.ProjectNumber = projectNumber.String
	project.Description = description.String
	project.CreatedBy = createdBy.String

	return &project, nil
}
