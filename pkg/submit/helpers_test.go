package submit_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/task"
)

type mockRepository struct {
	tasks       map[task.ID]*task.Task
	sysConfig   map[string]string
	fragment    string
	fragmentErr error
	configErr   error
	fetched     []task.ID
}

func newMockRepository(tasks ...*task.Task) *mockRepository {
	m := &mockRepository{
		tasks:     make(map[task.ID]*task.Task),
		sysConfig: make(map[string]string),
	}

	for _, t := range tasks {
		m.tasks[t.ID] = t
	}

	return m
}

func (m *mockRepository) GetTask(_ context.Context, id task.ID) (*task.Task, error) {
	m.fetched = append(m.fetched, id)

	t, ok := m.tasks[id]
	if !ok {
		return nil, errors.Wrapf(task.ErrNotFound, "task %d", id)
	}

	return t, nil
}

func (m *mockRepository) GetSysConfig(_ context.Context, key string) (string, error) {
	if m.configErr != nil {
		return "", m.configErr
	}

	return m.sysConfig[key], nil
}

func (m *mockRepository) GetFragmentStatement(context.Context) (string, error) {
	return m.fragment, m.fragmentErr
}

type passthrough struct{}

func (passthrough) Pretreat(stmt string) string { return stmt }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func envID(id task.ID) *task.ID {
	return &id
}
