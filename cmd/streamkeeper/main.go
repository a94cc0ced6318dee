package main

import (
	"context"
	"os"

	"github.com/pseudomuto/streamkeeper/pkg/cmd"
	"github.com/pseudomuto/streamkeeper/pkg/config"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(
			os.Args,
			&cmd.Version{Version: version, Commit: commit, Timestamp: date},
		),
		fx.Provide(context.Background),
		config.Module,
		cmd.Module,
	)

	app.Run()
}
