package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

type (
	// Call is one recorded session call.
	Call struct {
		Method     string
		Statements []string
		JobName    string
	}

	// DryRun is an Engine that records calls instead of executing them. Failures
	// can be injected per method to exercise error paths.
	DryRun struct {
		mu       sync.Mutex
		calls    []Call
		failures map[string]error
	}

	dryRunSession struct {
		engine   *DryRun
		settings task.Settings
	}
)

const (
	MethodExecuteSingle = "ExecuteSingle"
	MethodExecuteBatch  = "ExecuteBatch"
	MethodRunJob        = "RunJob"
	MethodClose         = "Close"
)

// NewDryRun creates an empty recorder.
func NewDryRun() *DryRun {
	return &DryRun{failures: make(map[string]error)}
}

// FailOn makes every subsequent call of method return err.
func (d *DryRun) FailOn(method string, err error) *DryRun {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.failures[method] = err
	return d
}

// Open implements Engine.
func (d *DryRun) Open(_ context.Context, settings task.Settings) (Session, error) {
	return &dryRunSession{engine: d, settings: settings}, nil
}

// Calls returns the recorded calls in order.
func (d *DryRun) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// WriteTo renders the recorded calls, one per line, excluding Close.
func (d *DryRun) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	for _, c := range d.Calls() {
		switch c.Method {
		case MethodExecuteSingle:
			fmt.Fprintf(&sb, "execute: %s\n", c.Statements[0])
		case MethodExecuteBatch:
			fmt.Fprintf(&sb, "statement set:\n  %s\n", strings.Join(c.Statements, consts.StatementSetSeparator+"  "))
		case MethodRunJob:
			fmt.Fprintf(&sb, "run job: %s\n", c.JobName)
		}
	}

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

func (d *DryRun) record(c Call) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls = append(d.calls, c)
	return d.failures[c.Method]
}

func (s *dryRunSession) ExecuteSingle(_ context.Context, stmt string) error {
	return s.engine.record(Call{Method: MethodExecuteSingle, Statements: []string{stmt}})
}

func (s *dryRunSession) ExecuteBatch(_ context.Context, stmts []string) error {
	return s.engine.record(Call{Method: MethodExecuteBatch, Statements: append([]string(nil), stmts...)})
}

func (s *dryRunSession) RunJob(_ context.Context, jobName string) (JobHandle, error) {
	if err := s.engine.record(Call{Method: MethodRunJob, JobName: jobName}); err != nil {
		return JobHandle{}, err
	}

	return JobHandle{ID: "dry-run-" + s.settings.TaskID().String(), Name: jobName}, nil
}

func (s *dryRunSession) Close() error {
	return s.engine.record(Call{Method: MethodClose})
}
