package submit

import (
	"fmt"

	"github.com/pseudomuto/streamkeeper/pkg/task"
)

// Bucket names a planning category.
type Bucket string

const (
	BucketDDL     Bucket = "ddl"
	BucketTrans   Bucket = "trans"
	BucketExecute Bucket = "execute"
)

// ExecutionOrder lists the buckets in the order they are driven.
var ExecutionOrder = []Bucket{BucketDDL, BucketTrans, BucketExecute}

type (
	// ExecutionError reports a statement (or statement set) the engine rejected.
	// Effects of statements executed before it are not rolled back.
	ExecutionError struct {
		TaskID    task.ID
		Bucket    Bucket
		Statement string
		Err       error
	}

	// RunError reports a failed final job run. Drive logs it and does not return
	// it, since the statements have already been handed to the engine.
	RunError struct {
		TaskID  task.ID
		JobName string
		Err     error
	}
)

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s: failed to execute %s statement: %s: %v", e.TaskID, e.Bucket, e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func (e *RunError) Error() string {
	return fmt.Sprintf("task %s: failed to run job %q: %v", e.TaskID, e.JobName, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
