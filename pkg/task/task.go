// Package task defines the task record consumed by the submission pipeline, the
// immutable execution settings derived from it, and the repository contract used
// to look tasks and system configuration up.
package task

import (
	"context"
	"strconv"
)

const (
	// KeySQLSeparator is the system config key holding the statement separator.
	KeySQLSeparator = "flink.settings.sqlSeparator"

	// KeyDinkyAddr is the system config key holding the address dependency
	// archives are downloaded from.
	KeyDinkyAddr = "env.settings.dinkyAddr"
)

type (
	// ID identifies a task.
	ID int64

	// Task is a read-only snapshot of a persisted task. It is fetched once per
	// submission and never mutated by the pipeline.
	Task struct {
		ID   ID
		Name string

		// EnvID references an environment task whose statement is prepended to
		// this task's statement.
		EnvID *ID

		// Statement is the raw script body. It may be empty.
		Statement string

		// Fragment enables the global session fragment and `name := value`
		// variable definitions.
		Fragment bool

		// Type is the runtime type tag used to pick an engine.
		Type string

		// CheckPoint is the checkpoint interval in milliseconds (0 disables it).
		CheckPoint    int
		Parallelism   int
		StatementSet  bool
		BatchModel    bool
		SavePointPath string
	}

	// Repository is the persistence boundary of the pipeline.
	Repository interface {
		// GetTask returns the task with the given id, or an error wrapping
		// ErrNotFound.
		GetTask(ctx context.Context, id ID) (*Task, error)

		// GetSysConfig returns a system configuration value. A missing key is
		// not an error and yields "".
		GetSysConfig(ctx context.Context, key string) (string, error)

		// GetFragmentStatement returns the global session fragment block.
		GetFragmentStatement(ctx context.Context) (string, error)
	}
)

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// HasEnv reports whether the task references an environment task.
func (t *Task) HasEnv() bool {
	return t.EnvID != nil
}
