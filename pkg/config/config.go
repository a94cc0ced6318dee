package config

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/engine/clickhouse"
	"github.com/pseudomuto/streamkeeper/pkg/postgres"
	"github.com/pseudomuto/streamkeeper/pkg/staging"
	"gopkg.in/yaml.v3"
)

const (
	// KindClickHouse serves runtime types with a ClickHouse connection.
	KindClickHouse = "clickhouse"

	// KindGateway serves runtime types through a Flink SQL gateway.
	KindGateway = "gateway"

	// EnvDatabaseURL overrides database.url.
	EnvDatabaseURL = "STREAMKEEPER_DATABASE_URL"

	// EnvS3SecretKey overrides staging.s3.secret_key.
	EnvS3SecretKey = "STREAMKEEPER_S3_SECRET_KEY"
)

type (
	// Engine configures one execution engine and the runtime types it serves.
	Engine struct {
		Name    string   `yaml:"name"`
		Kind    string   `yaml:"kind"`
		Types   []string `yaml:"types,omitempty"`
		Default bool     `yaml:"default,omitempty"`

		// ClickHouse settings
		DSN         string                 `yaml:"dsn,omitempty"`
		Username    string                 `yaml:"username,omitempty"`
		Password    string                 `yaml:"password,omitempty"`
		Database    string                 `yaml:"database,omitempty"`
		TLS         clickhouse.TLSSettings `yaml:"tls,omitempty"`
		DialTimeout time.Duration          `yaml:"dial_timeout,omitempty"`

		// Gateway settings
		URL          string        `yaml:"url,omitempty"`
		PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	}

	// Staging configures dependency staging for kubernetes-application tasks.
	Staging struct {
		// Home is the engine home directory. Empty means $FLINK_HOME.
		Home           string        `yaml:"home,omitempty"`
		ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`

		// S3 enables s3:// dependency addresses.
		S3 *staging.S3Config `yaml:"s3,omitempty"`
	}

	// Config is the streamkeeper configuration.
	Config struct {
		Database postgres.Config `yaml:"database"`
		Engines  []Engine        `yaml:"engines"`
		Staging  Staging         `yaml:"staging"`
	}
)

// LoadConfig parses a configuration from the provided io.Reader.
//
// Values not present in the document keep their defaults. Secrets may be
// supplied through STREAMKEEPER_DATABASE_URL and STREAMKEEPER_S3_SECRET_KEY,
// which win over the document. The result is validated before it is returned.
//
// Example:
//
//	cfg, err := config.LoadConfig(strings.NewReader(`
//	database:
//	  url: postgres://localhost/dinky
//	engines:
//	  - name: flink
//	    kind: gateway
//	    url: http://localhost:8083
//	    default: true
//	`))
func LoadConfig(r io.Reader) (*Config, error) {
	cfg := Config{
		Database: postgres.DefaultConfig(),
		Staging: Staging{
			ConnectTimeout: consts.DefaultStagingConnectTimeout,
		},
	}

	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	cfg.applyEnv()

	for i := range cfg.Engines {
		if cfg.Engines[i].Kind == KindGateway && cfg.Engines[i].PollInterval == 0 {
			cfg.Engines[i].PollInterval = consts.DefaultGatewayPollInterval
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigFile loads a configuration from the specified file path.
// This is a convenience function that opens the file and calls LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Validate checks the database settings and the engine list. Engine names must
// be unique, at most one engine may be the default and no runtime type may be
// served by two engines.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	names := make(map[string]bool, len(c.Engines))
	types := make(map[string]string)
	var defaultEngine string

	for _, e := range c.Engines {
		if e.Name == "" {
			return errors.New("engine name is required")
		}
		if names[e.Name] {
			return errors.Errorf("duplicate engine %q", e.Name)
		}
		names[e.Name] = true

		switch e.Kind {
		case KindClickHouse:
			if e.DSN == "" {
				return errors.Errorf("engine %q: dsn is required", e.Name)
			}
		case KindGateway:
			if e.URL == "" {
				return errors.Errorf("engine %q: url is required", e.Name)
			}
		default:
			return errors.Errorf("engine %q: unknown kind %q", e.Name, e.Kind)
		}

		if e.Default {
			if defaultEngine != "" {
				return errors.Errorf("engines %q and %q are both marked default", defaultEngine, e.Name)
			}
			defaultEngine = e.Name
		}

		for _, t := range e.Types {
			if other, ok := types[t]; ok {
				return errors.Errorf("runtime type %q is served by engines %q and %q", t, other, e.Name)
			}
			types[t] = e.Name
		}
	}

	return nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvDatabaseURL); ok && v != "" {
		c.Database.URL = v
	}

	if v, ok := os.LookupEnv(EnvS3SecretKey); ok && v != "" && c.Staging.S3 != nil {
		c.Staging.S3.SecretKey = v
	}
}
