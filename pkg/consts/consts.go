package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DefaultConfigFile is the config file loaded when no --config flag or
	// STREAMKEEPER_CONFIG variable is set.
	DefaultConfigFile = "streamkeeper.yaml"

	// DefaultSQLSeparator is the statement separator used when the system config
	// does not define one. It is a regular expression: a semicolon followed by a
	// newline or a trailing line comment.
	DefaultSQLSeparator = `;\s*(?:\n|--.*)`

	// StatementSetSeparator joins statements when a statement set is logged or
	// rendered.
	StatementSetSeparator = ";\n"

	// DefaultParallelSubmissions bounds concurrent submissions from a single
	// submit command.
	DefaultParallelSubmissions = 4

	// DefaultStagingConnectTimeout is the dial timeout for dependency downloads.
	DefaultStagingConnectTimeout = 3 * time.Second

	// DefaultGatewayPollInterval is how often operation status is polled on the
	// SQL gateway.
	DefaultGatewayPollInterval = 500 * time.Millisecond

	// DefaultGatewayRequestTimeout bounds a single request to the SQL gateway
	// when no HTTP client is supplied.
	DefaultGatewayRequestTimeout = 30 * time.Second

	// DefaultGatewayCloseTimeout bounds closing a gateway session.
	DefaultGatewayCloseTimeout = 10 * time.Second

	// DefaultDatabasePingTimeout bounds the initial database ping.
	DefaultDatabasePingTimeout = 2 * time.Second

	// KubernetesApplication is the only runtime type that stages dependencies.
	KubernetesApplication = "kubernetes-application"
)
