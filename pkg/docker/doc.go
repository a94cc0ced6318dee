// Package docker starts throwaway ClickHouse and PostgreSQL containers for
// integration tests of the runtimes and the task store.
//
// # Usage Example
//
//	if testing.Short() || !docker.Available() {
//		t.Skip("docker not available")
//	}
//
//	c, err := docker.StartPostgres(ctx, docker.PostgresOptions{InitDir: "testdata/schema"})
//	require.NoError(t, err)
//	t.Cleanup(func() { _ = c.Stop(context.Background()) })
//
//	dsn, err := c.DSN(ctx)
//	require.NoError(t, err)
package docker
