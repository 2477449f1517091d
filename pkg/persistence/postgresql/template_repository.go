package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowdesk/flowdesk/pkg/models"
)

// TemplateRepository handles flow template database operations.
type TemplateRepository struct {
	db     querier
	logger *slog.Logger
}

const templateColumns = `
	id
  , name
  , type
  , version
  , status
  , nodes
  , edges
  , metadata
  , description
  , created_by
  , updated_by
  , created_at
  , updated_at
`

func (r *TemplateRepository) List(ctx context.Context) ([]*models.FlowTemplate, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+templateColumns+" FROM flow_templates ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query flow templates: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	templates := make([]*models.FlowTemplate, 0)

	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow templates: %w", err)
	}

	return templates, nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.FlowTemplate, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM flow_templates WHERE id = $1", id)

	template, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan flow template: %w", err)
	}

	return template, nil
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.FlowTemplate) error {
	nodesJSON, err := json.Marshal(orEmptySlice(template.Nodes))
	if err != nil {
		return fmt.Errorf("failed to marshal nodes: %w", err)
	}

	edgesJSON, err := json.Marshal(orEmptySlice(template.Edges))
	if err != nil {
		return fmt.Errorf("failed to marshal edges: %w", err)
	}

	metadataJSON, err := json.Marshal(template.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO flow_templates (id, name, type, version, status,
nodes, edges, metadata, description, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			version = EXCLUDED.version,
			status = EXCLUDED.status,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			metadata = EXCLUDED.metadata,
			description = EXCLUDED.description,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		template.ID,
		template.Name,
		template.Type,
		template.Version,
		template.Status,
		nodesJSON,
		edgesJSON,
		metadataJSON,
		template.Description,
		template.CreatedBy,
		template.UpdatedBy,
		template.CreatedAt,
		template.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow template: %w", err)
	}

	return nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM flow_templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete flow template: %w", err)
	}

	return nil
}

func scanTemplate(row rowScanner) (*models.FlowTemplate, error) {
	var (
		template     models.FlowTemplate
		nodesJSON    []byte
		edgesJSON    []byte
		metadataJSON []byte
		templateType sql.NullString
		version      sql.NullString
		description  sql.NullString
		createdBy    sql.NullString
		updatedBy    sql.NullString
	)

	err := row.Scan(
		&template.ID,
		&template.Name,
		&templateType,
		&version,
		&template.Status,
		&nodesJSON,
		&edgesJSON,
		&metadataJSON,
		&description,
		&createdBy,
		&updatedBy,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	template.Type = templateType.String
	template.Version = version.String
	template.Description = description.String
	template.CreatedBy = createdBy.String
	template.UpdatedBy = updatedBy.String

	for _, field := range []struct {
		data []byte
		dest any
	}{
		{nodesJSON, &template.Nodes},
		{edgesJSON, &template.Edges},
		{metadataJSON, &template.Metadata},
	} {
		if len(field.data) == 0 {
			continue
		}

		if err := json.Unmarshal(field.data, field.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template field: %w", err)
		}
	}

	return &template, nil
}
