// Package postgresql provides PostgreSQL persistence for flow instances,
// templates, projects and users.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/persistence/sqlbase"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the repositories can
// run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	instances *InstanceRepository
	templates *TemplateRepository
	projects  *ProjectRepository
	users     *UserRepository
}

// NewPersistence connects, runs migrations, and returns the persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:        database,
		logger:    logger,
		instances: &InstanceRepository{db: database, conn: database, logger: logger},
		templates: &TemplateRepository{db: database, logger: logger},
		projects:  &ProjectRepository{db: database, logger: logger},
		users:     &UserRepository{db: database, logger: logger},
	}, nil
}

func (p *Persistence) Instances() persistence.InstanceRepository {
	return p.instances
}

func (p *Persistence) Templates() persistence.TemplateRepository {
	return p.templates
}

func (p *Persistence) Projects() persistence.ProjectRepository {
	return p.projects
}

func (p *Persistence) Users() persistence.UserRepository {
	return p.users
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
