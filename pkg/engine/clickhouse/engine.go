package clickhouse

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

type (
	// Options configure connections to ClickHouse.
	Options struct {
		// DSN is either host:port or a clickhouse:// URL.
		DSN string

		// Username, Password and Database override the values in DSN.
		Username string
		Password string
		Database string

		TLS         TLSSettings
		DialTimeout time.Duration
		Logger      *slog.Logger
	}

	// Conn is the subset of a ClickHouse connection used by sessions.
	Conn interface {
		Exec(ctx context.Context, query string, args ...any) error
		Ping(ctx context.Context) error
		Close() error
	}

	// Dialer opens a Conn.
	Dialer func(opts *clickhouse.Options) (Conn, error)

	// Engine opens ClickHouse sessions.
	Engine struct {
		opts   Options
		dial   Dialer
		logger *slog.Logger
	}

	session struct {
		conn     Conn
		settings task.Settings
		executed int
		logger   *slog.Logger
	}
)

// New creates an Engine that connects with clickhouse.Open.
func New(opts Options) *Engine {
	return NewWithDialer(opts, func(o *clickhouse.Options) (Conn, error) {
		return clickhouse.Open(o)
	})
}

// NewWithDialer creates an Engine that connects with dial.
func NewWithDialer(opts Options, dial Dialer) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{opts: opts, dial: dial, logger: logger}
}

// ConnOptions builds the driver options for a session with settings.
func (e *Engine) ConnOptions(settings task.Settings) (*clickhouse.Options, error) {
	var chOpts *clickhouse.Options
	if strings.Contains(e.opts.DSN, "://") {
		parsed, err := clickhouse.ParseDSN(e.opts.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse DSN")
		}
		chOpts = parsed
	} else {
		chOpts = &clickhouse.Options{Addr: []string{e.opts.DSN}}
	}

	if e.opts.Username != "" {
		chOpts.Auth.Username = e.opts.Username
	}

	if e.opts.Password != "" {
		chOpts.Auth.Password = e.opts.Password
	}

	if e.opts.Database != "" {
		chOpts.Auth.Database = e.opts.Database
	}

	if e.opts.DialTimeout > 0 {
		chOpts.DialTimeout = e.opts.DialTimeout
	}

	if e.opts.TLS.Enabled() {
		tlsConfig, err := GetTLSConfig(e.opts.TLS)
		if err != nil {
			return nil, err
		}
		chOpts.TLS = tlsConfig
	}

	if settings.Parallelism() > 0 {
		if chOpts.Settings == nil {
			chOpts.Settings = clickhouse.Settings{}
		}
		chOpts.Settings["max_threads"] = settings.Parallelism()
	}

	return chOpts, nil
}

// Open implements engine.Engine.
func (e *Engine) Open(ctx context.Context, settings task.Settings) (engine.Session, error) {
	chOpts, err := e.ConnOptions(settings)
	if err != nil {
		return nil, err
	}

	conn, err := e.dial(chOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to ClickHouse")
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to ping ClickHouse")
	}

	return &session{
		conn:     conn,
		settings: settings,
		logger:   e.logger.With("task_id", settings.TaskID(), "runtime", "clickhouse"),
	}, nil
}

func (s *session) ExecuteSingle(ctx context.Context, stmt string) error {
	if err := s.conn.Exec(ctx, stmt); err != nil {
		return err
	}

	s.executed++
	return nil
}

func (s *session) ExecuteBatch(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return errors.Wrapf(err, "statement %d of %d", i+1, len(stmts))
		}

		s.executed++
	}

	return nil
}

func (s *session) RunJob(_ context.Context, jobName string) (engine.JobHandle, error) {
	s.logger.Debug("Statements already applied", "job_name", jobName, "executed", s.executed)
	return engine.JobHandle{ID: uuid.NewString(), Name: jobName}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}
