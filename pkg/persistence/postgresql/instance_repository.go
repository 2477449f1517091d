package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
)

// InstanceRepository handles flow instance database operations. The graph
// snapshot and the per-node maps are stored as JSONB columns; logs grow only
// through AppendLogs, which uses the JSONB array-append operator so entries
// are never rewritten.
type InstanceRepository struct {
	db     querier
	conn   *sql.DB
	logger *slog.Logger
}

const instanceColumns = `
	id
  , project_id
  , template_id
  , status
  , context
  , nodes
  , edges
  , node_data
  , node_states
  , node_context
  , logs
  , started_at
  , paused_at
  , ended_at
  , created_by
  , updated_by
  , created_at
  , updated_at
`

func (r *InstanceRepository) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.FlowInstance, error) {
	query := "SELECT " + instanceColumns + " FROM flow_instances WHERE 1=1"
	args := make([]any, 0, 2)

	if opts.ProjectID != "" {
		args = append(args, opts.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}

	if opts.Status != nil {
		args = append(args, *opts.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow instances: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	instances := make([]*models.FlowInstance, 0)

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow instance: %w", err)
		}

		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow instances: %w", err)
	}

	return instances, nil
}

func (r *InstanceRepository) GetByID(ctx context.Context, id string) (*models.FlowInstance, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+instanceColumns+" FROM flow_instances WHERE id = $1", id)

	instance, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewInstanceError("GetByID", id, err)
	}

	return instance, nil
}

// Save upserts every instance field except logs.
func (r *InstanceRepository) Save(ctx context.Context, instance *models.FlowInstance) error {
	contextJSON, err := json.Marshal(instance.Context)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, fmt.Errorf("failed to marshal context: %w", err))
	}

	nodesJSON, err := json.Marshal(orEmptySlice(instance.Nodes))
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, fmt.Errorf("failed to marshal nodes: %w", err))
	}

	edgesJSON, err := json.Marshal(orEmptySlice(instance.Edges))
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, fmt.Errorf("failed to marshal edges: %w", err))
	}

	nodeDataJSON, err := json.Marshal(orEmptyMap(instance.NodeData))
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, fmt.Errorf("failed to marshal node data: %w", err))
	}

	nodeStatesJSON, err := json.Marshal(orEmptyMap(instance.NodeStates))
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, fmt.Errorf("failed to marshal node states: %w", err))
	}

	nodeContextJSON, err := json.Marshal(orEmptyMap(instance.NodeContext))
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, fmt.Errorf("failed to marshal node context: %w", err))
	}

	query := `
		INSERT INTO flow_instances (id, project_id, template_id, status, context,
nodes, edges, node_data, node_states, node_context, logs,
started_at, paused_at, ended_at, created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '[]'::jsonb, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			context = EXCLUDED.context,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			node_data = EXCLUDED.node_data,
			node_states = EXCLUDED.node_states,
			node_context = EXCLUDED.node_context,
			started_at = EXCLUDED.started_at,
			paused_at = EXCLUDED.paused_at,
			ended_at = EXCLUDED.ended_at,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		instance.ID,
		instance.ProjectID,
		instance.TemplateID,
		instance.Status,
		contextJSON,
		nodesJSON,
		edgesJSON,
		nodeDataJSON,
		nodeStatesJSON,
		nodeContextJSON,
		instance.StartedAt,
		instance.PausedAt,
		instance.EndedAt,
		instance.CreatedBy,
		instance.UpdatedBy,
		instance.CreatedAt,
		instance.UpdatedAt,
	)
	if err != nil {
		return persistence.NewInstanceError("Save", instance.ID, err)
	}

	return nil
}

// AppendLogs pushes entries onto the logs array atomically, preserving order.
func (r *InstanceRepository) AppendLogs(ctx context.Context, id string, entries ...models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return persistence.NewInstanceError("AppendLogs", id, fmt.Errorf("failed to marshal log entries: %w", err))
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE flow_instances SET logs = logs || $2::jsonb WHERE id = $1", id, entriesJSON)
	if err != nil {
		return persistence.NewInstanceError("AppendLogs", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewInstanceError("AppendLogs", id, err)
	}

	if affected == 0 {
		return persistence.NewInstanceError("AppendLogs", id, persistence.ErrInstanceNotFound)
	}

	return nil
}

// Delete removes the instance; dependent document rows go with it via the
// ON DELETE CASCADE constraint.
func (r *InstanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM flow_instances WHERE id = $1", id)
	if err != nil {
		return persistence.NewInstanceError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewInstanceError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewInstanceError("Delete", id, persistence.ErrInstanceNotFound)
	}

	return nil
}

// InTransaction runs fn against a repository bound to one database
// transaction; fn returning an error rolls the whole transaction back.
func (r *InstanceRepository) InTransaction(ctx context.Context, fn func(ctx context.Context, repo persistence.InstanceRepository) error) error {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txRepo := &InstanceRepository{db: tx, conn: r.conn, logger: r.logger}

	if err := fn(ctx, txRepo); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			r.logger.ErrorContext(ctx, "failed to rollback transaction", "error", rollbackErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*models.FlowInstance, error) {
	var (
		instance        models.FlowInstance
		contextJSON     []byte
		nodesJSON       []byte
		edgesJSON       []byte
		nodeDataJSON    []byte
		nodeStatesJSON  []byte
		nodeContextJSON []byte
		logsJSON        []byte
		createdBy       sql.NullString
		updatedBy       sql.NullString
	)

	err := row.Scan(
		&instance.ID,
		&instance.ProjectID,
		&instance.TemplateID,
		&instance.Status,
		&contextJSON,
		&nodesJSON,
		&edgesJSON,
		&nodeDataJSON,
		&nodeStatesJSON,
		&nodeContextJSON,
		&logsJSON,
		&instance.StartedAt,
		&instance.PausedAt,
		&instance.EndedAt,
		&createdBy,
		&updatedBy,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	instance.CreatedBy = createdBy.String
	instance.UpdatedBy = updatedBy.String

	for _, field := range []struct {
		data []byte
		dest any
	}{
		{contextJSON, &instance.Context},
		{nodesJSON, &instance.Nodes},
		{edgesJSON, &instance.Edges},
		{nodeDataJSON, &instance.NodeData},
		{nodeStatesJSON, &instance.NodeStates},
		{nodeContextJSON, &instance.NodeContext},
		{logsJSON, &instance.Logs},
	} {
		if len(field.data) == 0 {
			continue
		}

		if err := json.Unmarshal(field.data, field.dest); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance field: %w", err)
		}
	}

	return &instance, nil
}

func orEmptySlice[T any](s []T) []T {
	if s == nil {
		return make([]T, 0)
	}

	return s
}

func orEmptyMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V)
	}

	return m
}
