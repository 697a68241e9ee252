package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/okra-platform/xtask/internal/commands"
	"github.com/okra-platform/xtask/internal/runner"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func newApp(ctrl *commands.Controller) *cli.Command {
	return &cli.Command{
		Name:    "xtask",
		Usage:   "Workspace maintenance tasks: protocol code generation, bindings and native dependencies",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("XTASK_LOG_LEVEL"),
				Value:       "info",
				Destination: &ctrl.Flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "path to xtask.yaml (default: search the current directory and its parents)",
				Sources:     cli.EnvVars("XTASK_CONFIG"),
				Destination: &ctrl.Flags.Config,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			level, err := zerolog.ParseLevel(ctrl.Flags.LogLevel)
			if err != nil {
				return ctx, fmt.Errorf("failed to parse log level: %w", err)
			}

			log.Logger = log.Level(level)

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "codegen",
				Usage: "Generate code for all protocols",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "target",
						Usage: "only generate the named target (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "select",
						Usage: "choose the targets interactively",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "regenerate whenever a schema file changes",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Codegen(ctx, commands.CodegenOptions{
						Targets: c.StringSlice("target"),
						Select:  c.Bool("select"),
						Watch:   c.Bool("watch"),
					})
				},
			},
			{
				Name:  "bindgen",
				Usage: "Generate rust-bindgen for grpcio-sys package",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Bindgen(ctx)
				},
			},
			{
				Name:  "submodule",
				Usage: "Init necessary submodules for compilation",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Submodule(ctx)
				},
			},
			{
				Name:  "clang-lint",
				Usage: "Lint cpp code in grpcio-sys package",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.ClangLint(ctx)
				},
			},
			{
				Name:  "refresh-package",
				Usage: "Regenerate grpc-sys/link-deps.rs to show the latest linking dependencies",
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.RefreshPackage(ctx)
				},
			},
		},
	}
}

func main() {
	ctrl := &commands.Controller{
		Flags: &commands.Flags{},
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := newApp(ctrl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("xtask failed")
		stop()
		os.Exit(runner.ExitStatus(err))
	}
}
