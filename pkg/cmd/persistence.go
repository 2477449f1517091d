package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/persistence/file"
	"github.com/flowdesk/flowdesk/pkg/persistence/postgresql"
)

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	default:
		p, err := file.NewPersistence(databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create file persistence: %w", err))
		}

		return p
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	return parts[0]
}
