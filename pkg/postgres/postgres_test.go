package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/pseudomuto/streamkeeper/pkg/docker"
	. "github.com/pseudomuto/streamkeeper/pkg/postgres"
	"github.com/pseudomuto/streamkeeper/pkg/task"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.URL = "postgres://localhost/streamkeeper"

	tests := []struct {
		name   string
		mutate func(*Config)
		err    string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.URL = "" }, err: "database url is required"},
		{name: "zero ping timeout", mutate: func(c *Config) { c.PingTimeout = 0 }, err: "database ping_timeout must be positive"},
		{name: "no open conns", mutate: func(c *Config) { c.MaxOpenConns = 0 }, err: "database max_open_conns must be >= 1"},
		{name: "negative idle conns", mutate: func(c *Config) { c.MaxIdleConns = -1 }, err: "database max_idle_conns must be >= 0"},
		{
			name:   "idle above open",
			mutate: func(c *Config) { c.MaxOpenConns, c.MaxIdleConns = 2, 3 },
			err:    "database max_idle_conns must be <= max_open_conns",
		},
		{name: "negative lifetime", mutate: func(c *Config) { c.ConnMaxLifetime = -time.Second }, err: "database conn_max_lifetime must be >= 0"},
		{name: "negative idle time", mutate: func(c *Config) { c.ConnMaxIdleTime = -time.Second }, err: "database conn_max_idle_time must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.err == "" {
				require.NoError(t, err)
				return
			}

			require.EqualError(t, err, tt.err)
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.EqualError(t, err, "database url is required")
}

func TestRenderFragment(t *testing.T) {
	require.Equal(t, "src:=orders;", RenderFragment("src", "orders"))
	require.Equal(t, "src:=orders;", RenderFragment("src", " orders; "))
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	if !docker.Available() {
		t.Skip("Docker not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := docker.StartPostgres(ctx, docker.PostgresOptions{InitDir: "testdata/schema"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	dsn, err := c.DSN(ctx)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.URL = dsn
	cfg.PingTimeout = 10 * time.Second

	db, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db)

	t.Run("task with environment", func(t *testing.T) {
		got, err := store.GetTask(ctx, 2)
		require.NoError(t, err)

		env := task.ID(1)
		require.Equal(t, &task.Task{
			ID:            2,
			Name:          "orders-sync",
			EnvID:         &env,
			Statement:     "INSERT INTO ${sink} SELECT * FROM ${source};",
			Fragment:      true,
			Type:          "kubernetes-application",
			CheckPoint:    60000,
			Parallelism:   4,
			StatementSet:  true,
			SavePointPath: "s3://savepoints/orders",
		}, got)
	})

	t.Run("task without statement", func(t *testing.T) {
		got, err := store.GetTask(ctx, 3)
		require.NoError(t, err)
		require.Empty(t, got.Statement)
		require.False(t, got.HasEnv())
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := store.GetTask(ctx, 99)
		require.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("sys config", func(t *testing.T) {
		sep, err := store.GetSysConfig(ctx, task.KeySQLSeparator)
		require.NoError(t, err)
		require.Equal(t, `;\n`, sep)

		addr, err := store.GetSysConfig(ctx, task.KeyDinkyAddr)
		require.NoError(t, err)
		require.Empty(t, addr)

		missing, err := store.GetSysConfig(ctx, "does.not.exist")
		require.NoError(t, err)
		require.Empty(t, missing)
	})

	t.Run("fragments", func(t *testing.T) {
		fragment, err := store.GetFragmentStatement(ctx)
		require.NoError(t, err)
		require.Equal(t, "source:=orders_src;\nsink:=orders_dst;", fragment)
	})
}
