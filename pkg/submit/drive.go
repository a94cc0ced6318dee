package submit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/parser"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

// Driver issues a Plan to an engine session.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a Driver that reports progress to logger.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Driver{logger: logger}
}

// Drive executes p on sess: every DDL statement individually, then the
// transactional statements, then the execute actions followed by a single job
// run. Buckets are never interleaved.
//
// With a statement set, only the INSERT statements of Trans are submitted, as
// one batch, even when there are none; the engine decides whether an empty set
// is valid. Without one, only the first Trans statement is executed.
//
// A failed DDL, transactional or execute-action statement aborts the drive with
// an *ExecutionError. A failed job run is logged as a *RunError and Drive still
// returns nil.
func (d *Driver) Drive(ctx context.Context, sess engine.Session, settings task.Settings, p Plan) error {
	log := d.logger.With("task_id", settings.TaskID())

	for _, rec := range p.DDL {
		if err := d.executeSingle(ctx, log, sess, settings, BucketDDL, rec); err != nil {
			return err
		}
	}

	if len(p.Trans) > 0 {
		if err := d.driveTrans(ctx, log, sess, settings, p); err != nil {
			return err
		}
	}

	if len(p.Execute) > 0 {
		return d.driveExecute(ctx, log, sess, settings, p)
	}

	return nil
}

func (d *Driver) driveTrans(ctx context.Context, log *slog.Logger, sess engine.Session, settings task.Settings, p Plan) error {
	if !settings.UseStatementSet() {
		return d.executeSingle(ctx, log, sess, settings, BucketTrans, p.Trans[0])
	}

	inserts := p.Inserts()
	if len(inserts) == 0 {
		log.Warn("Statement set has no INSERT statements", "bucket", BucketTrans, "statements", len(p.Trans))
	}

	joined := strings.Join(inserts, consts.StatementSetSeparator)
	log.Info("Executing statement set", "bucket", BucketTrans, "sql", joined)
	if err := sess.ExecuteBatch(ctx, inserts); err != nil {
		return &ExecutionError{TaskID: settings.TaskID(), Bucket: BucketTrans, Statement: joined, Err: err}
	}

	log.Info("Execution succeeded", "bucket", BucketTrans)
	return nil
}

func (d *Driver) driveExecute(ctx context.Context, log *slog.Logger, sess engine.Session, settings task.Settings, p Plan) error {
	executes := make([]string, 0, len(p.Execute))
	for _, rec := range p.Execute {
		executes = append(executes, rec.SQL)
	}

	log.Info("Executing statement set", "bucket", BucketExecute, "sql", strings.Join(executes, consts.StatementSetSeparator))
	for _, rec := range p.Execute {
		if err := d.executeSingle(ctx, log, sess, settings, BucketExecute, rec); err != nil {
			return err
		}
	}

	handle, err := sess.RunJob(ctx, settings.JobName())
	if err != nil {
		runErr := &RunError{TaskID: settings.TaskID(), JobName: settings.JobName(), Err: err}
		log.Error("Job run failed", "bucket", BucketExecute, "err", runErr)
		return nil
	}

	log.Info("Job run succeeded", "bucket", BucketExecute, "job_id", handle.ID, "job_name", handle.Name)
	return nil
}

func (d *Driver) executeSingle(
	ctx context.Context,
	log *slog.Logger,
	sess engine.Session,
	settings task.Settings,
	bucket Bucket,
	rec Record,
) error {
	log.Info("Executing statement", "bucket", bucket, "kind", rec.Kind, "keyword", parser.Keyword(rec.SQL), "sql", rec.SQL)
	if err := sess.ExecuteSingle(ctx, rec.SQL); err != nil {
		return &ExecutionError{TaskID: settings.TaskID(), Bucket: bucket, Statement: rec.SQL, Err: err}
	}

	log.Info("Execution succeeded", "bucket", bucket)
	return nil
}
