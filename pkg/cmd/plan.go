package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/pseudomuto/streamkeeper/pkg/config"
	"github.com/pseudomuto/streamkeeper/pkg/submit"
	"github.com/urfave/cli/v3"
)

// planCmd creates the command that prints how a task would be submitted
// without contacting any engine.
func planCmd(src *config.Source, b *Backend) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "Show the assembled script and statement plan of a task",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "task-id",
				Aliases:  []string{"t"},
				Usage:    "the task to plan",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "script",
				Usage: "include the assembled script",
			},
		},
		Before: requireConfig(src),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids, err := parseTaskIDs([]string{cmd.String("task-id")})
			if err != nil {
				return err
			}

			cfg, err := src.Load()
			if err != nil {
				return err
			}

			repo, closer, err := b.OpenRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			s := submit.New(submit.Params{Repository: repo, Logger: slog.Default()})
			preview, err := s.Preview(ctx, ids[0])
			if err != nil {
				return err
			}

			return renderPreview(outWriter(cmd), preview, cmd.Bool("script"))
		},
	}
}

func renderPreview(w io.Writer, p *submit.Preview, withScript bool) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "task: %s (%s)\n", p.Task.ID, p.Task.Name)
	fmt.Fprintf(&sb, "settings: %s\n", p.Settings)
	fmt.Fprintf(&sb, "separator: %q\n", p.Separator)
	fmt.Fprintf(&sb, "statements: %d\n", len(p.Statements))

	if withScript {
		sb.WriteString("\nscript:\n")
		for _, line := range strings.Split(p.Script, "\n") {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	if len(p.Variables) > 0 {
		sb.WriteString("\nvariables:\n")
		for _, k := range slices.Sorted(maps.Keys(p.Variables)) {
			fmt.Fprintf(&sb, "  %s = %s\n", k, p.Variables[k])
		}
	}

	for _, bucket := range submit.ExecutionOrder {
		records := p.Plan.Records(bucket)
		if len(records) == 0 {
			continue
		}

		fmt.Fprintf(&sb, "\n%s:\n", bucket)
		for i, rec := range records {
			fmt.Fprintf(&sb, "  %d. [%s] %s\n", i+1, rec.Kind, indent(rec.SQL, "     "))
		}
	}

	if p.Plan.Empty() {
		sb.WriteString("\nnothing to submit\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
