package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/config"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/postgres"
	"github.com/pseudomuto/streamkeeper/pkg/task"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// ConfigFixture is a config file in an isolated temp directory.
type ConfigFixture struct {
	Dir    string
	Path   string
	Config *config.Config
	Source *config.Source
	t      *testing.T
}

// TestConfig writes a config with a database url and no engines, and returns a
// Source pointing at it.
func TestConfig(t *testing.T) *ConfigFixture {
	t.Helper()

	dir := t.TempDir()
	f := &ConfigFixture{
		Dir:  dir,
		Path: filepath.Join(dir, consts.DefaultConfigFile),
		Config: &config.Config{
			Database: postgres.DefaultConfig(),
		},
		t: t,
	}

	f.Config.Database.URL = "postgres://localhost/dinky"
	f.write()

	return f
}

// WithEngines replaces the engines and rewrites the file.
func (f *ConfigFixture) WithEngines(engines ...config.Engine) *ConfigFixture {
	f.t.Helper()

	f.Config.Engines = engines
	f.write()
	return f
}

func (f *ConfigFixture) write() {
	f.t.Helper()

	file, err := os.Create(f.Path)
	require.NoError(f.t, err, "Failed to create config file")
	defer func() { _ = file.Close() }()

	encoder := yaml.NewEncoder(file)
	require.NoError(f.t, encoder.Encode(f.Config), "Failed to write config file")
	require.NoError(f.t, encoder.Close())

	f.Source = config.NewSource()
	f.Source.SetPath(f.Path)
}

// Catalogue is an in-memory task.Repository.
type Catalogue struct {
	mu        sync.Mutex
	Tasks     map[task.ID]*task.Task
	SysConfig map[string]string
	Fragments string
	Closed    bool
}

// NewCatalogue creates a Catalogue holding tasks.
func NewCatalogue(tasks ...*task.Task) *Catalogue {
	c := &Catalogue{
		Tasks:     make(map[task.ID]*task.Task, len(tasks)),
		SysConfig: make(map[string]string),
	}

	for _, t := range tasks {
		c.Tasks[t.ID] = t
	}

	return c
}

// GetTask implements task.Repository.
func (c *Catalogue) GetTask(_ context.Context, id task.ID) (*task.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.Tasks[id]
	if !ok {
		return nil, errors.Wrapf(task.ErrNotFound, "task %s", id)
	}

	cp := *t
	return &cp, nil
}

// GetSysConfig implements task.Repository.
func (c *Catalogue) GetSysConfig(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.SysConfig[key], nil
}

// GetFragmentStatement implements task.Repository.
func (c *Catalogue) GetFragmentStatement(context.Context) (string, error) {
	return c.Fragments, nil
}

// Close records that the catalogue was released.
func (c *Catalogue) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Closed = true
	return nil
}
