package cmd

import "go.uber.org/fx"

var Module = fx.Module("cli",
	fx.Provide(
		NewBackend,
		fx.Annotate(enginesCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(planCmd, fx.ResultTags(`group:"commands"`)),
		fx.Annotate(submitCmd, fx.ResultTags(`group:"commands"`)),
	),
	fx.Invoke(Run),
)
