package submit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/interceptor"
	"github.com/pseudomuto/streamkeeper/pkg/parser"
	"github.com/pseudomuto/streamkeeper/pkg/staging"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

type (
	// AppConfig identifies what to submit.
	AppConfig struct {
		TaskID task.ID
	}

	// Stager stages a task's dependency archive. Staging is best effort: its
	// errors are logged and never fail a submission.
	Stager interface {
		Stage(ctx context.Context, req staging.Request) (staging.Result, error)
	}

	// Params are the collaborators of a Submitter. Stager and Logger are
	// optional.
	Params struct {
		Repository task.Repository
		Engine     engine.Engine
		Stager     Stager
		Logger     *slog.Logger
	}

	// Submitter runs the submission pipeline for tasks.
	Submitter struct {
		repo   task.Repository
		engine engine.Engine
		stager Stager
		logger *slog.Logger
	}

	// Preview is everything a submission would do, short of engine calls.
	Preview struct {
		Task       *task.Task
		Script     string
		Separator  string
		Statements []string
		Settings   task.Settings
		Plan       Plan
		Variables  map[string]string
	}
)

// New creates a Submitter.
func New(p Params) *Submitter {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Submitter{
		repo:   p.Repository,
		engine: p.Engine,
		stager: p.Stager,
		logger: logger,
	}
}

// Submit resolves, plans and drives the task identified by cfg.
//
// Lookup failures (the task, its environment task or required config) return a
// *task.LookupError before any engine interaction. Rejected statements return
// an *ExecutionError; statements executed before the failure stay applied.
func (s *Submitter) Submit(ctx context.Context, cfg AppConfig) error {
	logger := s.logger.With("submission_id", uuid.NewString(), "task_id", cfg.TaskID)
	logger.Info("Start submitting task")

	preview, err := s.prepare(ctx, cfg.TaskID, logger, true)
	if err != nil {
		return err
	}

	if preview.Plan.Empty() {
		logger.Info("Task has no statements to submit")
		return nil
	}

	sess, err := s.engine.Open(ctx, preview.Settings)
	if err != nil {
		return errors.Wrapf(err, "failed to open %q session for task %s", preview.Settings.Type(), cfg.TaskID)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Failed to close engine session", "err", err)
		}
	}()

	if err := NewDriver(logger).Drive(ctx, sess, preview.Settings, preview.Plan); err != nil {
		logger.Error("Submission failed", "err", err)
		return err
	}

	logger.Info("Task submitted successfully")
	return nil
}

// Preview runs the pipeline up to planning without staging dependencies or
// touching an engine.
func (s *Submitter) Preview(ctx context.Context, id task.ID) (*Preview, error) {
	return s.prepare(ctx, id, s.logger.With("task_id", id), false)
}

func (s *Submitter) prepare(ctx context.Context, id task.ID, logger *slog.Logger, stage bool) (*Preview, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, task.TaskLookupError(id, err)
	}

	script, err := NewResolver(s.repo, logger).Resolve(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve statements of task %s", id)
	}

	var opts []task.SettingsOption
	if stage {
		opts = append(opts, task.WithConfigMap(s.stage(ctx, t, logger)))
	}

	settings := task.NewSettings(*t, opts...)
	logger.Info("Job configuration", "settings", settings)

	separator, err := s.repo.GetSysConfig(ctx, task.KeySQLSeparator)
	if err != nil {
		return nil, &task.LookupError{Kind: task.KindConfig, Key: task.KeySQLSeparator, Err: err}
	}

	statements := parser.Split(script, separator)
	pre := interceptor.New(t.Fragment)
	plan := NewPlan(statements, pre, settings.UseStatementSet())

	logger.Info("Planned statements",
		"statements", len(statements),
		"ddl", len(plan.DDL),
		"trans", len(plan.Trans),
		"execute", len(plan.Execute),
	)

	return &Preview{
		Task:       t,
		Script:     script,
		Separator:  separator,
		Statements: statements,
		Settings:   settings,
		Plan:       plan,
		Variables:  pre.Variables(),
	}, nil
}

// stage returns the engine config contributed by staged dependencies, or nil.
func (s *Submitter) stage(ctx context.Context, t *task.Task, logger *slog.Logger) map[string]string {
	if s.stager == nil {
		return nil
	}

	addr, err := s.repo.GetSysConfig(ctx, task.KeyDinkyAddr)
	if err != nil {
		logger.Warn("Unable to read dependency address, skipping staging", "err", err)
		return nil
	}

	res, err := s.stager.Stage(ctx, staging.Request{TaskID: t.ID, RuntimeType: t.Type, Addr: addr})
	if err != nil {
		logger.Warn("Dependency staging failed, continuing without dependencies", "err", err)
		return nil
	}

	if !res.Staged {
		return nil
	}

	logger.Info("Dependencies staged", "jars", len(res.Jars), "py_files", len(res.PyFiles))
	return res.Config()
}
