package docker

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/go-connections/nat"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// ClickHouseHTTPPort is the HTTP port of the ClickHouse server.
	ClickHouseHTTPPort = nat.Port("8123/tcp")

	// PostgresPort is the port of the PostgreSQL server.
	PostgresPort = nat.Port("5432/tcp")

	startupDeadline = 5 * time.Minute
)

type (
	// ClickHouseOptions configure a ClickHouse container.
	ClickHouseOptions struct {
		// Version is the clickhouse-server image tag (default: latest).
		Version string

		// ConfigDir is mounted as /etc/clickhouse-server/config.d when set.
		ConfigDir string
	}

	// PostgresOptions configure a PostgreSQL container.
	PostgresOptions struct {
		// Version is the postgres image tag (default: 16-alpine).
		Version  string
		Database string
		Username string
		Password string

		// InitDir holds *.sql files run on first start.
		InitDir string
	}

	// Container is a running throwaway database.
	Container struct {
		container testcontainers.Container
		dsn       func(ctx context.Context) (string, error)
	}
)

// Available returns true when a Docker daemon answers.
func Available() bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}

	return exec.Command("docker", "ps").Run() == nil
}

// StartClickHouse starts a ClickHouse server.
//
// Example:
//
//	c, err := docker.StartClickHouse(ctx, docker.ClickHouseOptions{Version: "25.7"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Stop(ctx)
//
//	dsn, _ := c.DSN(ctx)
func StartClickHouse(ctx context.Context, opts ClickHouseOptions) (*Container, error) {
	version := opts.Version
	if version == "" {
		version = "latest"
	}

	customizers := []testcontainers.ContainerCustomizer{
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			startupDeadline,
			wait.
				NewHTTPStrategy("/").
				WithPort(ClickHouseHTTPPort).
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	}

	if opts.ConfigDir != "" {
		mod, err := bindMount(opts.ConfigDir, "/etc/clickhouse-server/config.d")
		if err != nil {
			return nil, err
		}
		customizers = append(customizers, testcontainers.WithHostConfigModifier(mod))
	}

	c, err := clickhouse.Run(ctx, fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", version), customizers...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start ClickHouse container")
	}

	dsn := func(ctx context.Context) (string, error) {
		return c.ConnectionString(ctx)
	}

	return &Container{container: c, dsn: dsn}, nil
}

// StartPostgres starts a PostgreSQL server.
func StartPostgres(ctx context.Context, opts PostgresOptions) (*Container, error) {
	version := opts.Version
	if version == "" {
		version = "16-alpine"
	}

	env := map[string]string{
		"POSTGRES_DB":       valueOr(opts.Database, "streamkeeper"),
		"POSTGRES_USER":     valueOr(opts.Username, "streamkeeper"),
		"POSTGRES_PASSWORD": valueOr(opts.Password, "streamkeeper"),
	}

	req := testcontainers.ContainerRequest{
		Image:        "postgres:" + version,
		ExposedPorts: []string{string(PostgresPort)},
		Env:          env,
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(PostgresPort),
		).WithDeadline(startupDeadline),
	}

	if opts.InitDir != "" {
		mod, err := bindMount(opts.InitDir, "/docker-entrypoint-initdb.d")
		if err != nil {
			return nil, err
		}
		req.HostConfigModifier = mod
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start PostgreSQL container")
	}

	dsn := func(ctx context.Context) (string, error) {
		host, err := c.Host(ctx)
		if err != nil {
			return "", errors.Wrap(err, "failed to get container host")
		}

		port, err := c.MappedPort(ctx, PostgresPort)
		if err != nil {
			return "", errors.Wrap(err, "failed to get container port")
		}

		return fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			env["POSTGRES_USER"], env["POSTGRES_PASSWORD"], host, port.Port(), env["POSTGRES_DB"],
		), nil
	}

	return &Container{container: c, dsn: dsn}, nil
}

// DSN returns the connection string of the container.
func (c *Container) DSN(ctx context.Context) (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	return c.dsn(ctx)
}

// Stop terminates the container. Stopping twice is a no-op.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil

	return errors.Wrap(err, "failed to stop container")
}

func bindMount(source, target string) (func(*container.HostConfig), error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get absolute path for %s", source)
	}

	return func(hostConfig *container.HostConfig) {
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   abs,
			Target:   target,
			ReadOnly: true,
		})
	}, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}

	return v
}
