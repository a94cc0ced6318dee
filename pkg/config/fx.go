package config

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"go.uber.org/fx"
)

var Module = fx.Module("config", fx.Provide(NewSource))

// ErrNotFound is returned by Source.Load when the config file does not exist.
var ErrNotFound = errors.New("config file not found")

// Source loads the configuration on first use. The path is usually set by the
// CLI once its flags are parsed, so commands that don't need a config (help,
// version) never touch the file system.
type Source struct {
	mu   sync.Mutex
	path string
	cfg  *Config
}

// NewSource creates a Source reading consts.DefaultConfigFile.
func NewSource() *Source {
	return &Source{path: consts.DefaultConfigFile}
}

// SetPath changes the file to load. It has no effect after a successful Load.
func (s *Source) SetPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.path = path
}

// Path returns the file Load reads.
func (s *Source) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.path
}

// Load returns the configuration, reading it on the first call.
func (s *Source) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg != nil {
		return s.cfg, nil
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, s.path)
	}

	cfg, err := LoadConfigFile(s.path)
	if err != nil {
		return nil, err
	}

	s.cfg = cfg
	return cfg, nil
}
