package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pseudomuto/streamkeeper/pkg/config"
	"github.com/urfave/cli/v3"
)

// enginesCmd lists the configured engines and the runtime types they serve.
func enginesCmd(src *config.Source) *cli.Command {
	return &cli.Command{
		Name:   "engines",
		Usage:  "List configured engines and their runtime types",
		Before: requireConfig(src),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := src.Load()
			if err != nil {
				return err
			}

			return renderEngines(outWriter(cmd), cfg.Engines)
		},
	}
}

func renderEngines(w io.Writer, engines []config.Engine) error {
	if len(engines) == 0 {
		_, err := fmt.Fprintln(w, "No engines configured")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tDEFAULT\tTYPES\tTARGET")

	for _, e := range engines {
		target := e.URL
		if e.Kind == config.KindClickHouse {
			target = e.DSN
		}

		def := "no"
		if e.Default {
			def = "yes"
		}

		types := strings.Join(e.Types, ",")
		if types == "" {
			types = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Kind, def, types, target)
	}

	return tw.Flush()
}
