package cmd

import (
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/flowdesk/flowdesk/pkg/analysisapi"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/executors/analysis"
	"github.com/flowdesk/flowdesk/pkg/executors/complaintselector"
	"github.com/flowdesk/flowdesk/pkg/executors/datasource"
	"github.com/flowdesk/flowdesk/pkg/executors/export"
	"github.com/flowdesk/flowdesk/pkg/executors/transform"
	"github.com/flowdesk/flowdesk/pkg/executors/visualization"
)

// NewRegistry builds the executor registry with all built-in node executors.
// When redisURL is non-empty, analysis API GET responses are cached in Redis.
func NewRegistry(logger *slog.Logger, analysisAPIURL, redisURL string) *executors.Registry {
	opts := make([]analysisapi.Option, 0, 1)

	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			panic(fmt.Errorf("failed to parse redis URL: %w", err))
		}

		cache := analysisapi.NewRedisCache(redis.NewClient(redisOpts), logger)
		opts = append(opts, analysisapi.WithCache(cache, analysisapi.DefaultCacheTTL))
	}

	api := analysisapi.NewClient(analysisAPIURL, logger, opts...)

	registry := executors.NewRegistry(logger)
	registry.Register(complaintselector.New())
	registry.Register(datasource.New())
	registry.Register(transform.New(api))
	registry.Register(analysis.New(api))
	registry.Register(visualization.New())
	registry.Register(export.New(api))

	return registry
}
