package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/cmd/testutil"
	"github.com/pseudomuto/streamkeeper/pkg/config"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/staging"
	"github.com/pseudomuto/streamkeeper/pkg/submit"
	"github.com/pseudomuto/streamkeeper/pkg/task"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func testBackend(cat *testutil.Catalogue, eng engine.Engine) *Backend {
	return &Backend{
		OpenRepository: func(context.Context, *config.Config) (task.Repository, io.Closer, error) {
			return cat, cat, nil
		},
		NewEngine: func(*config.Config, *slog.Logger) (engine.Engine, error) {
			return eng, nil
		},
		NewStager: func(*config.Config, *slog.Logger) (submit.Stager, error) {
			return nil, nil
		},
	}
}

func ordersCatalogue() *testutil.Catalogue {
	env := task.ID(4)
	cat := testutil.NewCatalogue(
		&task.Task{
			ID:        1,
			Name:      "single",
			Type:      "local",
			Statement: "CREATE TABLE a (id INT);\nINSERT INTO b SELECT * FROM a;\nINSERT INTO c SELECT * FROM a;\n",
		},
		&task.Task{
			ID:           2,
			Name:         "fan-out",
			Type:         "local",
			StatementSet: true,
			Statement:    "INSERT INTO b SELECT * FROM a;\nINSERT INTO c SELECT * FROM a;\n",
		},
		&task.Task{ID: 4, Name: "env", Statement: "SET 'parallelism.default' = '4';"},
		&task.Task{ID: 6, Name: "noop", Type: "local", Statement: "-- nothing to do"},
		&task.Task{
			ID:           5,
			Name:         "orders-sync",
			EnvID:        &env,
			Fragment:     true,
			Type:         "kubernetes-application",
			CheckPoint:   60000,
			Parallelism:  4,
			StatementSet: true,
			Statement: "CREATE TABLE ${src} (id INT) WITH ('connector' = 'datagen');\n" +
				"sink := orders_dst;\n" +
				"INSERT INTO ${sink} SELECT * FROM ${src};\n" +
				"SELECT * FROM ${src};\n" +
				"EXECUTE CDCSOURCE demo WITH ('connector' = 'mysql-cdc');",
		},
	)

	cat.SysConfig[task.KeySQLSeparator] = `;\n`
	cat.Fragments = "src:=orders_src;"
	return cat
}

func TestSubmitCommand(t *testing.T) {
	fixture := testutil.TestConfig(t)

	t.Run("dry run prints calls per task", func(t *testing.T) {
		cat := ordersCatalogue()
		command := submitCmd(fixture.Source, testBackend(cat, nil))

		out, err := testutil.RunCommand(t, command, []string{"--task-id", "1", "--task-id", "2", "--dry-run"})
		require.NoError(t, err)
		require.Equal(t, `# task 1
execute: CREATE TABLE a (id INT)
execute: INSERT INTO b SELECT * FROM a
# task 2
statement set:
  INSERT INTO b SELECT * FROM a;
  INSERT INTO c SELECT * FROM a
`, out)
		require.True(t, cat.Closed)
	})

	t.Run("submits through the engine", func(t *testing.T) {
		rec := engine.NewDryRun()
		command := submitCmd(fixture.Source, testBackend(ordersCatalogue(), rec))

		out, err := testutil.RunCommand(t, command, []string{"-t", "2", "--parallel", "1"})
		require.NoError(t, err)
		require.Empty(t, out)

		calls := rec.Calls()
		require.Len(t, calls, 2)
		require.Equal(t, engine.MethodExecuteBatch, calls[0].Method)
		require.Equal(t, engine.MethodClose, calls[1].Method)
	})

	t.Run("failed tasks fail the command", func(t *testing.T) {
		rec := engine.NewDryRun().FailOn(engine.MethodExecuteSingle, errors.New("boom"))
		command := submitCmd(fixture.Source, testBackend(ordersCatalogue(), rec))

		_, err := testutil.RunCommand(t, command, []string{"-t", "1,2,99"})
		require.EqualError(t, err, "2 of 3 tasks failed to submit")
	})

	t.Run("invalid task id", func(t *testing.T) {
		command := submitCmd(fixture.Source, testBackend(ordersCatalogue(), nil))

		_, err := testutil.RunCommand(t, command, []string{"-t", "abc"})
		require.EqualError(t, err, `invalid task id "abc"`)
	})

	t.Run("requires config", func(t *testing.T) {
		src := config.NewSource()
		src.SetPath(fixture.Dir + "/missing.yaml")
		command := submitCmd(src, testBackend(ordersCatalogue(), nil))

		_, err := testutil.RunCommand(t, command, []string{"-t", "1"})
		require.ErrorIs(t, err, config.ErrNotFound)
	})

	t.Run("repository errors", func(t *testing.T) {
		b := testBackend(ordersCatalogue(), nil)
		b.OpenRepository = func(context.Context, *config.Config) (task.Repository, io.Closer, error) {
			return nil, nil, errors.New("connection refused")
		}

		_, err := testutil.RunCommand(t, submitCmd(fixture.Source, b), []string{"-t", "1"})
		require.EqualError(t, err, "connection refused")
	})
}

func TestFailureStage(t *testing.T) {
	lookup := errors.Wrap(task.TaskLookupError(9, task.ErrNotFound), "resolve")
	require.Equal(t, "lookup", failureStage(lookup))
	require.Equal(t, "execution", failureStage(&submit.ExecutionError{TaskID: 1, Bucket: submit.BucketDDL, Err: errors.New("boom")}))
}

func TestPlanCommand(t *testing.T) {
	fixture := testutil.TestConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "plan", args: []string{"-t", "5"}},
		{name: "plan_with_script", args: []string{"-t", "5", "--script"}},
		{name: "plan_empty", args: []string{"-t", "6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command := planCmd(fixture.Source, testBackend(ordersCatalogue(), nil))

			out, err := testutil.RunCommand(t, command, tt.args)
			require.NoError(t, err)
			golden.Assert(t, out, tt.name+".golden")
		})
	}

	t.Run("missing task", func(t *testing.T) {
		command := planCmd(fixture.Source, testBackend(ordersCatalogue(), nil))

		_, err := testutil.RunCommand(t, command, []string{"-t", "99"})
		require.ErrorIs(t, err, task.ErrNotFound)
	})
}

func TestEnginesCommand(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		fixture := testutil.TestConfig(t)

		out, err := testutil.RunCommand(t, enginesCmd(fixture.Source), nil)
		require.NoError(t, err)
		require.Equal(t, "No engines configured\n", out)
	})

	t.Run("listed", func(t *testing.T) {
		fixture := testutil.TestConfig(t).WithEngines(
			config.Engine{Name: "flink", Kind: config.KindGateway, Default: true, URL: "http://gateway:8083"},
			config.Engine{Name: "warehouse", Kind: config.KindClickHouse, Types: []string{"clickhouse", "olap"}, DSN: "ch:9000"},
		)

		out, err := testutil.RunCommand(t, enginesCmd(fixture.Source), nil)
		require.NoError(t, err)
		require.Equal(t, ""+
			"NAME       KIND        DEFAULT  TYPES            TARGET\n"+
			"flink      gateway     yes      -                http://gateway:8083\n"+
			"warehouse  clickhouse  no       clickhouse,olap  ch:9000\n", out)
	})
}

func TestNewRegistry(t *testing.T) {
	cfg := &config.Config{Engines: []config.Engine{
		{Name: "flink", Kind: config.KindGateway, URL: "http://gateway:8083", Types: []string{"local"}, Default: true},
		{Name: "warehouse", Kind: config.KindClickHouse, DSN: "localhost:9000", Types: []string{"clickhouse"}},
	}}

	eng, err := newRegistry(cfg, slog.Default())
	require.NoError(t, err)

	registry, ok := eng.(*engine.Registry)
	require.True(t, ok)
	require.Equal(t, []string{"clickhouse", "local"}, registry.Types())

	cfg.Engines[0].URL = "gateway:8083"
	_, err = newRegistry(cfg, slog.Default())
	require.ErrorContains(t, err, `failed to create engine "flink"`)
}

func TestNewStager(t *testing.T) {
	cfg := &config.Config{}
	_, err := newStager(cfg, slog.Default())
	require.NoError(t, err)

	cfg.Staging.S3 = &staging.S3Config{Endpoint: "http://minio:9000"}
	_, err = newStager(cfg, slog.Default())
	require.ErrorContains(t, err, "failed to configure s3 staging")

	cfg.Staging.S3 = &staging.S3Config{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"}
	_, err = newStager(cfg, slog.Default())
	require.NoError(t, err)
}

func TestParseTaskIDs(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		ids    []task.ID
		err    string
	}{
		{name: "repeated", values: []string{"1", "2"}, ids: []task.ID{1, 2}},
		{name: "comma separated", values: []string{"1, 2", "3"}, ids: []task.ID{1, 2, 3}},
		{name: "empty", values: []string{" "}, err: "at least one task id is required"},
		{name: "not a number", values: []string{"x"}, err: `invalid task id "x"`},
		{name: "not positive", values: []string{"0"}, err: `invalid task id "0"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, err := parseTaskIDs(tt.values)
			if tt.err != "" {
				require.EqualError(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.ids, ids)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "task_id", 7)
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"task_id":7`)

	_, err = newLogger(&buf, "loud", "text")
	require.ErrorContains(t, err, `invalid log level "loud"`)

	_, err = newLogger(&buf, "info", "xml")
	require.EqualError(t, err, `invalid log format "xml"`)
}
