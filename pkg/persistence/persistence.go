// Package persistence provides the data storage abstraction layer for flow
// templates, instances, projects and users.
package persistence

import (
	"context"

	"github.com/flowdesk/flowdesk/pkg/models"
)

type Persistence interface {
	Instances() InstanceRepository
	Templates() TemplateRepository
	Projects() ProjectRepository
	Users() UserRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// ListInstancesOptions filters instance listings.
type ListInstancesOptions struct {
	ProjectID string
	Status    *models.InstanceStatus
}

// InstanceRepository stores flow instances. GetByID returns (nil, nil) when
// no instance exists for the ID.
//
// Save persists every field except Logs; AppendLogs is the only way to grow
// the log so that entries are never rewritten or reordered. InTransaction
// runs fn against a repository view scoped to one atomic transaction; the
// whole transaction aborts if fn returns an error.
type InstanceRepository interface {
	List(ctx context.Context, opts ListInstancesOptions) ([]*models.FlowInstance, error)
	GetByID(ctx context.Context, id string) (*models.FlowInstance, error)
	Save(ctx context.Context, instance *models.FlowInstance) error
	AppendLogs(ctx context.Context, id string, entries ...models.LogEntry) error
	Delete(ctx context.Context, id string) error
	InTransaction(ctx context.Context, fn func(ctx context.Context, repo InstanceRepository) error) error
}

// TemplateRepository stores flow templates. GetByID returns (nil, nil) when
// absent.
type TemplateRepository interface {
	List(ctx context.Context) ([]*models.FlowTemplate, error)
	GetByID(ctx context.Context, id string) (*models.FlowTemplate, error)
	Save(ctx context.Context, template *models.FlowTemplate) error
	Delete(ctx context.Context, id string) error
}

// ProjectRepository stores projects. GetByID returns (nil, nil) when absent.
type ProjectRepository interface {
	List(ctx context.Context) ([]*models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Save(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
}

// UserRepository resolves users with their role names for authorization
// checks. GetByID returns (nil, nil) when absent.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}
