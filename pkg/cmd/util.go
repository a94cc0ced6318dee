package cmd

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/config"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/engine/clickhouse"
	"github.com/pseudomuto/streamkeeper/pkg/engine/gateway"
	"github.com/pseudomuto/streamkeeper/pkg/postgres"
	"github.com/pseudomuto/streamkeeper/pkg/staging"
	"github.com/pseudomuto/streamkeeper/pkg/submit"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

// Backend opens the collaborators of a submission from the configuration.
type Backend struct {
	OpenRepository func(ctx context.Context, cfg *config.Config) (task.Repository, io.Closer, error)
	NewEngine      func(cfg *config.Config, logger *slog.Logger) (engine.Engine, error)
	NewStager      func(cfg *config.Config, logger *slog.Logger) (submit.Stager, error)
}

// NewBackend returns the Backend backed by PostgreSQL, the configured engines
// and the dependency stager.
func NewBackend() *Backend {
	return &Backend{
		OpenRepository: openRepository,
		NewEngine:      newRegistry,
		NewStager:      newStager,
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (task.Repository, io.Closer, error) {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to the task catalogue")
	}

	return postgres.NewStore(db), db, nil
}

// newRegistry routes runtime types to the configured engines.
func newRegistry(cfg *config.Config, logger *slog.Logger) (engine.Engine, error) {
	registry := engine.NewRegistry()

	for _, ec := range cfg.Engines {
		var (
			e   engine.Engine
			err error
		)

		switch ec.Kind {
		case config.KindClickHouse:
			e = clickhouse.New(clickhouse.Options{
				DSN:         ec.DSN,
				Username:    ec.Username,
				Password:    ec.Password,
				Database:    ec.Database,
				TLS:         ec.TLS,
				DialTimeout: ec.DialTimeout,
				Logger:      logger.With("engine", ec.Name),
			})
		case config.KindGateway:
			e, err = gateway.New(gateway.Options{
				URL:          ec.URL,
				PollInterval: ec.PollInterval,
				Logger:       logger.With("engine", ec.Name),
			})
		default:
			err = errors.Errorf("unknown kind %q", ec.Kind)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create engine %q", ec.Name)
		}

		registry.Register(e, ec.Types...)
		if ec.Default {
			registry.SetDefault(e)
		}
	}

	return registry, nil
}

func newStager(cfg *config.Config, logger *slog.Logger) (submit.Stager, error) {
	opts := staging.Options{
		Home:           cfg.Staging.Home,
		ConnectTimeout: cfg.Staging.ConnectTimeout,
		Logger:         logger,
	}

	if cfg.Staging.S3 != nil {
		src, err := staging.NewS3Source(*cfg.Staging.S3, cfg.Staging.ConnectTimeout)
		if err != nil {
			return nil, errors.Wrap(err, "failed to configure s3 staging")
		}
		opts.S3 = src
	}

	return staging.New(opts), nil
}

func parseTaskIDs(values []string) ([]task.ID, error) {
	var ids []task.ID
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil || n <= 0 {
				return nil, errors.Errorf("invalid task id %q", part)
			}

			ids = append(ids, task.ID(n))
		}
	}

	if len(ids) == 0 {
		return nil, errors.New("at least one task id is required")
	}

	return ids, nil
}
