package file

import (
	"context"

	"github.com/flowdesk/flowdesk/pkg/models"
)

const usersDir = "users"

type UserRepository struct {
	persistence *Persistence
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	var user models.User

	found, err := r.persistence.readDocument(usersDir, id, &user)
	if err != nil || !found {
		return nil, err
	}

	return &user, nil
}

func (r *UserRepository) Save(_ context.Context, user *models.User) error {
	return r.persistence.writeDocument(usersDir, user.ID, user)
}
