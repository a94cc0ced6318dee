package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

const (
	selectTask = `
		SELECT t.id, t.name, t.env_id, COALESCE(s.statement, ''), t.fragment, t.type,
		       t.check_point, t.parallelism, t.statement_set, t.batch_model,
		       COALESCE(t.save_point_path, '')
		FROM dinky_task t
		LEFT JOIN dinky_task_statement s ON s.id = t.id
		WHERE t.id = $1`

	selectSysConfig = `SELECT value FROM dinky_sys_config WHERE name = $1`

	selectFragments = `
		SELECT name, fragment_value
		FROM dinky_fragment
		WHERE enabled
		ORDER BY id`
)

// Store implements task.Repository on the task catalogue tables.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store reading from db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetTask implements task.Repository.
func (s *Store) GetTask(ctx context.Context, id task.ID) (*task.Task, error) {
	var (
		t     task.Task
		envID sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, selectTask, int64(id)).Scan(
		&t.ID,
		&t.Name,
		&envID,
		&t.Statement,
		&t.Fragment,
		&t.Type,
		&t.CheckPoint,
		&t.Parallelism,
		&t.StatementSet,
		&t.BatchModel,
		&t.SavePointPath,
	)
	if err != nil {
		return nil, errors.Wrapf(handleNotFound(err), "task %s", id)
	}

	if envID.Valid {
		env := task.ID(envID.Int64)
		t.EnvID = &env
	}

	return &t, nil
}

// GetSysConfig implements task.Repository. A missing key yields "".
func (s *Store) GetSysConfig(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx, selectSysConfig, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "sys config %s", key)
	}

	return value.String, nil
}

// GetFragmentStatement implements task.Repository. Enabled fragments are
// rendered as `name:=value;` lines.
func (s *Store) GetFragmentStatement(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, selectFragments)
	if err != nil {
		return "", errors.Wrap(err, "fragments")
	}
	defer func() { _ = rows.Close() }()

	var lines []string
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return "", errors.Wrap(err, "fragments")
		}

		lines = append(lines, RenderFragment(name, value))
	}

	if err := rows.Err(); err != nil {
		return "", errors.Wrap(err, "fragments")
	}

	return strings.Join(lines, "\n"), nil
}

// RenderFragment renders a variable definition statement.
func RenderFragment(name, value string) string {
	return name + ":=" + strings.TrimRight(strings.TrimSpace(value), ";") + ";"
}

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return task.ErrNotFound
	}
	return err
}
