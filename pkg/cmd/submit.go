package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
	"github.com/pseudomuto/streamkeeper/pkg/config"
	"github.com/pseudomuto/streamkeeper/pkg/consts"
	"github.com/pseudomuto/streamkeeper/pkg/engine"
	"github.com/pseudomuto/streamkeeper/pkg/submit"
	"github.com/pseudomuto/streamkeeper/pkg/task"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// submitCmd creates the command that submits one or more tasks.
//
// Tasks are submitted concurrently, bounded by --parallel. A failed task does
// not stop the others; the command fails when any task failed. With --dry-run
// engine calls are recorded and printed instead of executed, and no
// dependencies are staged.
func submitCmd(src *config.Source, b *Backend) *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "Submit tasks to their execution engines",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "task-id",
				Aliases:  []string{"t"},
				Usage:    "the task to submit (repeatable)",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "parallel",
				Usage: "maximum number of concurrent submissions",
				Value: consts.DefaultParallelSubmissions,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print engine calls instead of executing them",
			},
		},
		Before: requireConfig(src),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids, err := parseTaskIDs(cmd.StringSlice("task-id"))
			if err != nil {
				return err
			}

			cfg, err := src.Load()
			if err != nil {
				return err
			}

			return runSubmit(ctx, cfg, b, submitOptions{
				ids:      ids,
				parallel: cmd.Int("parallel"),
				dryRun:   cmd.Bool("dry-run"),
				out:      outWriter(cmd),
			})
		},
	}
}

type submitOptions struct {
	ids      []task.ID
	parallel int
	dryRun   bool
	out      io.Writer
}

func runSubmit(ctx context.Context, cfg *config.Config, b *Backend, opts submitOptions) error {
	logger := slog.Default()

	repo, closer, err := b.OpenRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	params := submit.Params{Repository: repo, Logger: logger}
	if !opts.dryRun {
		if params.Engine, err = b.NewEngine(cfg, logger); err != nil {
			return err
		}

		if params.Stager, err = b.NewStager(cfg, logger); err != nil {
			return err
		}
	}

	recorders := make([]*engine.DryRun, len(opts.ids))

	var (
		mu     sync.Mutex
		failed []task.ID
		g      errgroup.Group
	)

	g.SetLimit(max(opts.parallel, 1))
	for i, id := range opts.ids {
		p := params
		if opts.dryRun {
			recorders[i] = engine.NewDryRun()
			p.Engine = recorders[i]
		}

		g.Go(func() error {
			if err := submit.New(p).Submit(ctx, submit.AppConfig{TaskID: id}); err != nil {
				logger.Error("Task submission failed", "task_id", id, "stage", failureStage(err), "err", err)

				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
			}

			return nil
		})
	}

	_ = g.Wait()

	if opts.dryRun {
		for i, id := range opts.ids {
			fmt.Fprintf(opts.out, "# task %s\n", id)
			if _, err := recorders[i].WriteTo(opts.out); err != nil {
				return errors.Wrap(err, "failed to write dry run")
			}
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d tasks failed to submit", len(failed), len(opts.ids))
	}

	return nil
}

// failureStage reports whether a submission failed before reaching the engine.
func failureStage(err error) string {
	if task.IsLookupError(err) {
		return "lookup"
	}

	return "execution"
}
