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

// UserRepository resolves users with their role names. Account management is
// handled elsewhere; this repository exists for authorization lookups and for
// seeding test fixtures.
type UserRepository struct {
	db     querier
	logger *slog.Logger
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var (
		user      models.User
		rolesJSON []byte
	)

	err := r.db.QueryRowContext(ctx, "SELECT id, username, roles FROM users WHERE id = $1", id).
		Scan(&user.ID, &user.Username, &rolesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if len(rolesJSON) > 0 {
		if err := json.Unmarshal(rolesJSON, &user.Roles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user roles: %w", err)
		}
	}

	return &user, nil
}

func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	rolesJSON, err := json.Marshal(orEmptySlice(user.Roles))
	if err != nil {
		return fmt.Errorf("failed to marshal user roles: %w", err)
	}

	query := `
		INSERT INTO users (id, username, roles)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			roles = EXCLUDED.roles
	`

	_, err = r.db.ExecContext(ctx, query, user.ID, user.Username, rolesJSON)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}
