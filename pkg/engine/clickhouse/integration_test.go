package clickhouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/pseudomuto/streamkeeper/pkg/docker"
	. "github.com/pseudomuto/streamkeeper/pkg/engine/clickhouse"
	"github.com/pseudomuto/streamkeeper/pkg/task"
	"github.com/stretchr/testify/require"
)

func TestSessionIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ClickHouse integration test in short mode")
	}

	if !docker.Available() {
		t.Skip("Docker not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	c, err := docker.StartClickHouse(ctx, docker.ClickHouseOptions{Version: "25.7"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	dsn, err := c.DSN(ctx)
	require.NoError(t, err)

	sess, err := New(Options{DSN: dsn}).Open(ctx, task.NewSettings(task.Task{ID: 1, Name: "it", Parallelism: 2}))
	require.NoError(t, err)
	defer func() { require.NoError(t, sess.Close()) }()

	require.NoError(t, sess.ExecuteSingle(ctx, "CREATE TABLE src (id UInt32) ENGINE = Memory"))
	require.NoError(t, sess.ExecuteSingle(ctx, "CREATE TABLE dst (id UInt32) ENGINE = Memory"))
	require.NoError(t, sess.ExecuteSingle(ctx, "INSERT INTO src VALUES (1), (2), (3)"))
	require.NoError(t, sess.ExecuteBatch(ctx, []string{
		"INSERT INTO dst SELECT id FROM src WHERE id < 3",
		"INSERT INTO dst SELECT id * 10 FROM src WHERE id = 3",
	}))

	err = sess.ExecuteBatch(ctx, []string{"INSERT INTO missing VALUES (1)"})
	require.ErrorContains(t, err, "statement 1 of 1")

	handle, err := sess.RunJob(ctx, "it")
	require.NoError(t, err)
	require.Equal(t, "it", handle.Name)
}
