package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

// Session properties derived from task settings.
const (
	PropRuntimeMode        = "execution.runtime-mode"
	PropParallelism        = "parallelism.default"
	PropCheckpointInterval = "execution.checkpointing.interval"
	PropSavepointPath      = "execution.savepoint.path"
	PropPipelineName       = "pipeline.name"

	RuntimeModeStreaming = "streaming"
	RuntimeModeBatch     = "batch"
)

const (
	statementSetHeader = "EXECUTE STATEMENT SET\nBEGIN\n"
	statementSetFooter = ";\nEND"
)

type (
	// Options configure an Engine.
	Options struct {
		// URL is the gateway REST endpoint, e.g. http://localhost:8083.
		URL string

		// PollInterval is the delay between operation status checks.
		PollInterval time.Duration

		// CloseTimeout bounds closing a session.
		CloseTimeout time.Duration

		HTTPClient *http.Client
		Logger     *slog.Logger
	}

	// Engine opens Flink SQL gateway sessions.
	Engine struct {
		client       *Client
		poll         time.Duration
		closeTimeout time.Duration
		logger       *slog.Logger
	}

	session struct {
		client    *Client
		handle    string
		poll         time.Duration
		closeTimeout time.Duration
		operation    string
		logger    *slog.Logger
	}
)

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	client, err := NewClient(opts.URL, opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	poll := opts.PollInterval
	if poll <= 0 {
		poll = consts.DefaultGatewayPollInterval
	}

	closeTimeout := opts.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = consts.DefaultGatewayCloseTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{client: client, poll: poll, closeTimeout: closeTimeout, logger: logger}, nil
}

// SessionProperties returns the gateway session properties for settings.
// Entries of settings.Config() take precedence.
func SessionProperties(settings task.Settings) map[string]string {
	props := map[string]string{
		PropRuntimeMode:  RuntimeModeStreaming,
		PropPipelineName: settings.JobName(),
	}

	if settings.UseBatchModel() {
		props[PropRuntimeMode] = RuntimeModeBatch
	}

	if settings.Parallelism() > 0 {
		props[PropParallelism] = strconv.Itoa(settings.Parallelism())
	}

	if settings.CheckPoint() > 0 {
		props[PropCheckpointInterval] = fmt.Sprintf("%d ms", settings.CheckPoint())
	}

	if settings.SavePointPath() != "" {
		props[PropSavepointPath] = settings.SavePointPath()
	}

	maps.Copy(props, settings.Config())
	return props
}

// StatementSet renders stmts as a single statement set statement.
func StatementSet(stmts []string) string {
	return statementSetHeader + strings.Join(stmts, consts.StatementSetSeparator) + statementSetFooter
}

// Open implements engine.Engine.
func (e *Engine) Open(ctx context.Context, settings task.Settings) (engine.Session, error) {
	handle, err := e.client.OpenSession(ctx, settings.JobName(), SessionProperties(settings))
	if err != nil {
		return nil, err
	}

	return &session{
		client:       e.client,
		handle:       handle,
		poll:         e.poll,
		closeTimeout: e.closeTimeout,
		logger:       e.logger.With("task_id", settings.TaskID(), "runtime", "gateway", "session", handle),
	}, nil
}

func (s *session) ExecuteSingle(ctx context.Context, stmt string) error {
	return s.execute(ctx, stmt)
}

func (s *session) ExecuteBatch(ctx context.Context, stmts []string) error {
	return s.execute(ctx, StatementSet(stmts))
}

// RunJob returns the job started by the last submitted operation.
func (s *session) RunJob(ctx context.Context, jobName string) (engine.JobHandle, error) {
	if s.operation == "" {
		return engine.JobHandle{}, errors.New("no statement submitted in session")
	}

	status, err := s.client.OperationStatus(ctx, s.handle, s.operation)
	if err != nil {
		return engine.JobHandle{}, err
	}

	if status != StatusRunning && status != StatusFinished {
		return engine.JobHandle{}, errors.Errorf("operation %s is %s", s.operation, status)
	}

	res, err := s.client.FetchResult(ctx, s.handle, s.operation)
	if err != nil {
		return engine.JobHandle{}, errors.Wrap(err, "failed to fetch job id")
	}

	id := res.JobID
	if id == "" {
		id = s.operation
	}

	return engine.JobHandle{ID: id, Name: jobName}, nil
}

// Close closes the session on the gateway, giving up after the configured close
// timeout. It does not take the submission context, which may already be done.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.closeTimeout)
	defer cancel()

	return s.client.CloseSession(ctx, s.handle)
}

// execute submits stmt and waits until the operation leaves the queued and
// running states.
func (s *session) execute(ctx context.Context, stmt string) error {
	op, err := s.client.ExecuteStatement(ctx, s.handle, stmt)
	if err != nil {
		return err
	}
	s.operation = op

	status, err := s.await(ctx, op)
	if err != nil {
		return err
	}

	switch status {
	case StatusFinished:
		return nil
	case StatusError:
		if _, err := s.client.FetchResult(ctx, s.handle, op); err != nil {
			return errors.Wrap(err, "statement failed")
		}
		return errors.New("statement failed")
	default:
		return errors.Errorf("statement ended with status %s", status)
	}
}

func (s *session) await(ctx context.Context, op string) (string, error) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		status, err := s.client.OperationStatus(ctx, s.handle, op)
		if err != nil {
			return "", err
		}

		switch status {
		case StatusInitialized, StatusPending, StatusRunning:
			s.logger.Debug("Waiting for operation", "operation", op, "status", status)
		default:
			return status, nil
		}

		select {
		case <-ctx.Done():
			return "", errors.Wrapf(ctx.Err(), "waiting for operation %s", op)
		case <-ticker.C:
		}
	}
}
