// Package authz implements the ownership and role checks that guard
// destructive flow instance operations.
package authz

import (
	"context"
	"log/slog"

	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
)

type Authorizer struct {
	users  persistence.UserRepository
	logger *slog.Logger
}

func NewAuthorizer(users persistence.UserRepository, logger *slog.Logger) *Authorizer {
	return &Authorizer{
		users:  users,
		logger: logger.With("module", "authz"),
	}
}

// IsOwner reports whether userID created the instance.
func (a *Authorizer) IsOwner(instance *models.FlowInstance, userID string) bool {
	return userID != "" && instance.CreatedBy == userID
}

// IsAdmin reports whether the user holds an administrative role. An unknown
// user is not an admin; lookup failures other than not-found are surfaced.
func (a *Authorizer) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}

	if user == nil {
		a.logger.DebugContext(ctx, "admin check for unknown user", "user_id", userID)

		return false, nil
	}

	return user.IsAdmin(), nil
}
