package task

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

type (
	// Settings are the execution settings of a single submission. They are built
	// once from a task snapshot and cannot be changed afterwards; every accessor
	// returns a value or a copy.
	Settings struct {
		taskID        ID
		runtimeType   string
		checkPoint    int
		parallelism   int
		statementSet  bool
		batchModel    bool
		savePointPath string
		jobName       string
		config        map[string]string
	}

	// SettingsOption customises Settings at construction time.
	SettingsOption func(*Settings)
)

// WithConfig adds an engine configuration entry, e.g. pipeline.jars for staged
// dependencies. Empty values are ignored.
func WithConfig(key, value string) SettingsOption {
	return func(s *Settings) {
		if value == "" {
			return
		}
		s.config[key] = value
	}
}

// WithConfigMap adds every entry of cfg via WithConfig.
func WithConfigMap(cfg map[string]string) SettingsOption {
	return func(s *Settings) {
		for k, v := range cfg {
			WithConfig(k, v)(s)
		}
	}
}

// NewSettings derives the execution settings of t.
func NewSettings(t Task, opts ...SettingsOption) Settings {
	s := Settings{
		taskID:        t.ID,
		runtimeType:   t.Type,
		checkPoint:    t.CheckPoint,
		parallelism:   t.Parallelism,
		statementSet:  t.StatementSet,
		batchModel:    t.BatchModel,
		savePointPath: t.SavePointPath,
		jobName:       t.Name,
		config:        make(map[string]string),
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

func (s Settings) TaskID() ID { return s.taskID }
func (s Settings) Type() string { return s.runtimeType }
func (s Settings) CheckPoint() int { return s.checkPoint }
func (s Settings) Parallelism() int { return s.parallelism }
func (s Settings) UseStatementSet() bool { return s.statementSet }
func (s Settings) UseBatchModel() bool { return s.batchModel }
func (s Settings) SavePointPath() string { return s.savePointPath }
func (s Settings) JobName() string { return s.jobName }
func (s Settings) Config() map[string]string { return maps.Clone(s.config) }

// String renders the settings in a single line for logs.
func (s Settings) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "type=%s checkpoint=%d parallelism=%d statementSet=%t batchModel=%t",
		s.runtimeType, s.checkPoint, s.parallelism, s.statementSet, s.batchModel)

	if s.savePointPath != "" {
		fmt.Fprintf(&sb, " savePointPath=%s", s.savePointPath)
	}

	fmt.Fprintf(&sb, " jobName=%q", s.jobName)

	for _, k := range slices.Sorted(maps.Keys(s.config)) {
		fmt.Fprintf(&sb, " %s=%s", k, s.config[k])
	}

	return sb.String()
}

// LogValue implements slog.LogValuer.
func (s Settings) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("type", s.runtimeType),
		slog.Int("checkpoint", s.checkPoint),
		slog.Int("parallelism", s.parallelism),
		slog.Bool("statement_set", s.statementSet),
		slog.Bool("batch_model", s.batchModel),
		slog.String("job_name", s.jobName),
	}

	if s.savePointPath != "" {
		attrs = append(attrs, slog.String("save_point_path", s.savePointPath))
	}

	for _, k := range slices.Sorted(maps.Keys(s.config)) {
		attrs = append(attrs, slog.String(k, s.config[k]))
	}

	return slog.GroupValue(attrs...)
}
