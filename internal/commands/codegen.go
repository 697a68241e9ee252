package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/okra-platform/xtask/internal/codegen"
	"github.com/okra-platform/xtask/internal/dev"
	"github.com/okra-platform/xtask/internal/runner"
)

// CodegenOptions are the flags of the codegen command
type CodegenOptions struct {
	// Targets restricts the run to the named targets
	Targets []string
	// Select asks for the targets interactively
	Select bool
	// Watch keeps running and regenerates on schema changes
	Watch bool
}

// CodegenDependencies for the codegen command
type CodegenDependencies struct {
	ConfigLoader ConfigLoader
	Picker       TargetPicker
	Logger       zerolog.Logger
}

// CodegenCommand encapsulates the codegen logic with injected dependencies
type CodegenCommand struct {
	deps CodegenDependencies
}

// NewCodegenCommand creates a new codegen command with default dependencies
func NewCodegenCommand(loader ConfigLoader, logger zerolog.Logger) *CodegenCommand {
	return &CodegenCommand{
		deps: CodegenDependencies{
			ConfigLoader: loader,
			Picker:       &formPicker{},
			Logger:       logger,
		},
	}
}

// WithDependencies allows injecting custom dependencies for testing
func (cc *CodegenCommand) WithDependencies(deps CodegenDependencies) *CodegenCommand {
	cc.deps = deps
	return cc
}

// Execute runs the codegen command
func (cc *CodegenCommand) Execute(ctx context.Context, opts CodegenOptions) error {
	cfg, err := cc.deps.ConfigLoader.LoadConfig()
	if err != nil {
		return runner.Fail("config", fmt.Errorf("failed to load configuration: %w", err))
	}

	targets, err := codegen.SelectTargets(cfg.Targets, opts.Targets)
	if err != nil {
		return runner.Fail("config", err)
	}
	if opts.Select {
		targets, err = cc.deps.Picker.Pick(targets)
		if err != nil {
			return runner.Fail("select", err)
		}
	}

	logger := cc.deps.Logger
	gen := codegen.NewGenerator(cfg, runner.New(cfg.Root, logger), logger)
	if err := gen.CheckTools(); err != nil {
		return err
	}

	logger.Info().
		Str("root", cfg.Root).
		Int("targets", len(targets)).
		Msg("generating code")

	if opts.Watch {
		return dev.NewRegenerator(cfg, gen, targets, logger).Start(ctx)
	}
	return gen.RunAll(ctx, targets)
}
