package submit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pseudomuto/streamkeeper/pkg/task"
)

// Resolver assembles the raw script of a task from its environment task, the
// global session fragment and its own statement.
type Resolver struct {
	repo   task.Repository
	logger *slog.Logger
}

// NewResolver creates a Resolver reading from repo.
func NewResolver(repo task.Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{repo: repo, logger: logger}
}

// Resolve returns the script for t: the environment statement, the fragment
// block and the task statement, in that order, each of the first two followed by
// a newline. An empty environment statement contributes nothing.
//
// Only the environment task named by t is read; its own environment reference
// is not followed. A missing environment task fails with a LookupError of kind
// KindTask.
func (r *Resolver) Resolve(ctx context.Context, t *task.Task) (string, error) {
	var sb strings.Builder
	if t.HasEnv() {
		env, err := r.repo.GetTask(ctx, *t.EnvID)
		if err != nil {
			return "", task.TaskLookupError(*t.EnvID, err)
		}

		if env.Statement != "" {
			r.logger.Info("Loading environment task", "task_id", t.ID, "env", env.Name)
			sb.WriteString(env.Statement)
			sb.WriteByte('\n')
		}
	}

	if t.Fragment {
		r.logger.Info("Global fragment enabled, loading session fragment", "task_id", t.ID)
		fragment, err := r.repo.GetFragmentStatement(ctx)
		if err != nil {
			return "", &task.LookupError{Kind: task.KindConfig, Key: "fragment", Err: err}
		}

		sb.WriteString(fragment)
		sb.WriteByte('\n')
	}

	sb.WriteString(t.Statement)
	return sb.String(), nil
}
