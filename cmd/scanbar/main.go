// Package main provides the CLI entry point for scanbar.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/ndisidore/scanbar/internal/progress"
	"github.com/ndisidore/scanbar/internal/scanbar"
	"github.com/ndisidore/scanbar/internal/stats"
	"github.com/ndisidore/scanbar/pkg/config"
	"github.com/ndisidore/scanbar/pkg/sampler"
	"github.com/ndisidore/scanbar/pkg/scan"
	"github.com/ndisidore/scanbar/pkg/slogctx"
)

var (
	// errUnknownProgressMode indicates an unrecognised --progress value.
	errUnknownProgressMode = errors.New("unknown progress mode")
	// errMissingFile indicates a command that needs a file argument got none.
	errMissingFile = errors.New("missing file argument")
)

// app bundles dependencies so CLI action handlers become testable methods.
type app struct {
	parse  func(path string) (config.Run, error)
	stdout io.Writer
	isTTY  bool
	format string // resolved output format (pretty, json, text)
}

func main() {
	a := &app{
		parse:  config.ParseFile,
		stdout: os.Stdout,
		isTTY:  term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("CI") == "",
	}

	cmd := a.command()
	cmd.ExitErrHandler = func(_ context.Context, _ *cli.Command, err error) {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}

// command builds the CLI tree bound to a.
func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:  "scanbar",
		Usage: "run sampling chains with per-chain progress bars",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Usage:   "output format (auto, pretty, json, text)",
				Value:   "auto",
				Sources: cli.EnvVars("SCANBAR_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("SCANBAR_LOG_LEVEL"),
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "sample chains and show their progress",
				Flags:  append(runFlags(), displayFlags()...),
				Action: a.runAction,
			},
			{
				Name:  "plan",
				Usage: "print the refresh cadence and update schedule for a sample count",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "samples",
						Aliases:  []string{"n"},
						Usage:    "iterations per chain",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "events",
						Usage: "list every update event",
					},
				},
				Action: a.planAction,
			},
			{
				Name:      "validate",
				Usage:     "validate a KDL run file",
				ArgsUsage: "<file>",
				Action:    a.validateAction,
			},
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	a.format = cmd.String("format")
	if a.format == "auto" {
		if a.isTTY {
			a.format = "pretty"
		} else {
			a.format = "text"
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
		return ctx, fmt.Errorf("invalid log level %q: %w", cmd.String("log-level"), err)
	}
	logger, err := progress.NewLogger(a.stdout, a.format, level)
	if err != nil {
		return ctx, fmt.Errorf("initializing logger: %w", err)
	}
	slog.SetDefault(logger)
	return slogctx.ContextWithLogger(ctx, logger), nil
}

// runFlags returns the flags that describe a sampling run. Each one
// overrides the matching field of --config when set.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "KDL run file",
			Sources: cli.EnvVars("SCANBAR_CONFIG"),
		},
		&cli.IntFlag{
			Name:    "samples",
			Aliases: []string{"n"},
			Usage:   "iterations per chain",
			Value:   1000,
		},
		&cli.IntFlag{
			Name:  "chains",
			Usage: "number of parallel chains",
			Value: config.DefaultChains,
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "random seed shared by all chains",
		},
		&cli.Float64Flag{
			Name:  "step-size",
			Usage: "random-walk proposal scale",
			Value: config.DefaultStepSize,
		},
		&cli.IntFlag{
			Name:    "parallelism",
			Aliases: []string{"j"},
			Usage:   "max concurrent chains (0 = unlimited)",
		},
		&cli.StringFlag{
			Name:  "label",
			Usage: "running bar label, with one %d for the chain",
		},
		&cli.StringFlag{
			Name:  "device-prefix",
			Usage: "identify chains by device name <prefix><chain> instead of by index",
		},
		&cli.BoolFlag{
			Name:  "stats",
			Usage: "print per-chain acceptance statistics after the run",
		},
	}
}

// displayFlags returns the flags that pick how bars are rendered.
func displayFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "progress",
			Usage: "progress output mode (auto, tui, plain, quiet)",
			Value: "auto",
		},
		&cli.BoolFlag{
			Name:  "boring",
			Usage: "use ASCII glyphs in TUI bars",
		},
	}
}

// resolveRun merges --config with explicitly set flags.
func (a *app) resolveRun(cmd *cli.Command) (config.Run, error) {
	r := config.Run{
		Name:     "cli",
		Samples:  int(cmd.Int("samples")),
		Chains:   int(cmd.Int("chains")),
		StepSize: cmd.Float64("step-size"),
	}
	if path := cmd.String("config"); path != "" {
		var err error
		if r, err = a.parse(path); err != nil {
			return config.Run{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if cmd.IsSet("samples") {
		r.Samples = int(cmd.Int("samples"))
	}
	if cmd.IsSet("chains") {
		r.Chains = int(cmd.Int("chains"))
	}
	if cmd.IsSet("seed") {
		r.Seed = cmd.Uint64("seed")
	}
	if cmd.IsSet("step-size") {
		r.StepSize = cmd.Float64("step-size")
	}
	if cmd.IsSet("parallelism") {
		r.Parallelism = int(cmd.Int("parallelism"))
	}
	if cmd.IsSet("label") {
		r.Label = cmd.String("label")
	}

	if err := r.Validate(); err != nil {
		return config.Run{}, fmt.Errorf("invalid run: %w", err)
	}
	return r, nil
}

func (a *app) runAction(ctx context.Context, cmd *cli.Command) error {
	run, err := a.resolveRun(cmd)
	if err != nil {
		return err
	}

	log := slogctx.FromContext(ctx)
	log.LogAttrs(ctx, slog.LevelInfo, fmt.Sprintf("run %s: %d chains x %d samples", run.Name, run.Chains, run.Samples),
		slog.String("event", "run.start"),
		slog.String("digest", run.Digest().Encoded()[:12]),
	)

	display, err := a.selectDisplay(cmd.String("progress"), cmd.Bool("boring"))
	if err != nil {
		return err
	}

	if err := display.Start(ctx); err != nil {
		return fmt.Errorf("starting display: %w", err)
	}
	defer display.Seal()

	var collector *stats.Collector
	if cmd.Bool("stats") {
		collector = stats.NewCollector()
	}

	start := time.Now()
	runErr := a.sample(ctx, run, display, cmd.String("device-prefix"), collector)

	display.Seal()
	waitErr := display.Wait()

	if err := errors.Join(runErr, waitErr); err != nil {
		return fmt.Errorf("running %s: %w", run.Name, err)
	}

	log.LogAttrs(ctx, slog.LevelInfo, fmt.Sprintf("run %s complete", run.Name),
		slog.String("event", "run.done"),
		slog.Duration("duration", time.Since(start).Round(time.Millisecond)),
	)
	if collector != nil {
		stats.PrintReport(a.stdout, collector.Report())
	}
	return nil
}

// sample runs every chain of run through a decorated scan.
func (*app) sample(
	ctx context.Context,
	run config.Run,
	display progress.Display,
	devicePrefix string,
	collector *stats.Collector,
) error {
	rep, err := scanbar.New(ctx, scanbar.Config{
		Total:        run.Samples,
		Lanes:        run.Chains,
		Display:      display,
		RunningLabel: run.Label,
	})
	if err != nil {
		return fmt.Errorf("creating reporter: %w", err)
	}

	return rep.Run(ctx, run.Parallelism, func(ctx context.Context, lane int) error {
		ctx = slogctx.With(ctx, slog.Int("lane", lane))
		chain, err := sampler.NewChain(sampler.StandardNormal, run.StepSize, run.Seed, lane)
		if err != nil {
			return err
		}

		var src scanbar.Source = scanbar.Lane(lane)
		if devicePrefix != "" {
			src = scanbar.Device(fmt.Sprintf("%s%d", devicePrefix, lane))
		}

		began := time.Now()
		body := scanbar.Decorate(rep, src, scan.Iteration, chain.Step)
		_, samples, err := scan.Run(ctx, body, chain.Init(0), scan.Arange(run.Samples))
		if err != nil {
			return err
		}

		sum := sampler.Summarize(samples)
		slogctx.FromContext(ctx).LogAttrs(ctx, slog.LevelDebug, "chain finished",
			slog.Float64("acceptance", sum.Acceptance()),
			slog.Float64("mean", sum.Mean),
		)
		if collector != nil {
			collector.Observe(lane, sum, time.Since(began))
		}
		return nil
	})
}

func (a *app) planAction(_ context.Context, cmd *cli.Command) error {
	total := int(cmd.Int("samples"))
	if total < 1 {
		return fmt.Errorf("invalid value %d for flag --samples: %w", total, scanbar.ErrInvalidTotal)
	}

	events := scanbar.Schedule(total)
	_, _ = fmt.Fprintf(a.stdout, "Samples:   %d\n", total)
	_, _ = fmt.Fprintf(a.stdout, "Cadence:   %d\n", scanbar.Cadence(total))
	_, _ = fmt.Fprintf(a.stdout, "Remainder: %d\n", scanbar.Remainder(total))
	_, _ = fmt.Fprintf(a.stdout, "Updates:   %d\n", len(events))
	if cmd.Bool("events") {
		for _, ev := range events {
			_, _ = fmt.Fprintf(a.stdout, "  iter %-6d %-6s +%d\n", ev.Iter, ev.Kind, ev.Advance)
		}
	}
	return nil
}

func (a *app) validateAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: scanbar validate <file>: %w", errMissingFile)
	}

	r, err := a.parse(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Run '%s' is valid\n", r.Name)
	_, _ = fmt.Fprintf(a.stdout, "  Samples: %d\n", r.Samples)
	_, _ = fmt.Fprintf(a.stdout, "  Chains:  %d\n", r.Chains)
	_, _ = fmt.Fprintf(a.stdout, "  Cadence: %d (remainder %d)\n", scanbar.Cadence(r.Samples), scanbar.Remainder(r.Samples))
	_, _ = fmt.Fprintf(a.stdout, "  Digest:  %s\n", r.Digest())
	return nil
}

func (a *app) selectDisplay(mode string, boring bool) (progress.Display, error) {
	switch mode {
	case "auto":
		if a.isTTY && a.format == "pretty" {
			return &progress.TUI{Boring: boring}, nil
		}
		return &progress.Plain{}, nil
	case "tui":
		return &progress.TUI{Boring: boring}, nil
	case "plain":
		return &progress.Plain{}, nil
	case "quiet":
		return &progress.Quiet{}, nil
	default:
		return nil, fmt.Errorf("%w %q (valid: auto, tui, plain, quiet)", errUnknownProgressMode, mode)
	}
}
