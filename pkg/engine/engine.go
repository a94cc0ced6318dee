// Package engine defines the runtime boundary of the submission pipeline.
//
// A Session is opened per submission with the task's execution settings and
// receives statements in the order the driver issues them: single statements,
// batched statement sets and a final job run. Runtimes live in sub-packages
// (clickhouse, gateway); a Registry picks one by the task's runtime type tag.
package engine

//go:generate mockgen -source=engine.go -destination=enginemock/engine.go -package=enginemock

import (
	"context"

	"github.com/pseudomuto/streamkeeper/pkg/task"
)

type (
	// Session executes statements for one submission.
	Session interface {
		// ExecuteSingle executes one statement synchronously.
		ExecuteSingle(ctx context.Context, stmt string) error

		// ExecuteBatch submits stmts as one statement set.
		ExecuteBatch(ctx context.Context, stmts []string) error

		// RunJob triggers the job assembled by previously executed statements.
		RunJob(ctx context.Context, jobName string) (JobHandle, error)

		// Close releases the session.
		Close() error
	}

	// Engine opens sessions configured with execution settings.
	Engine interface {
		Open(ctx context.Context, settings task.Settings) (Session, error)
	}

	// JobHandle identifies a job handed to a runtime.
	JobHandle struct {
		ID   string
		Name string
	}
)
