package codegen

import (
	"context"
	"fmt"

	"github.com/okra-platform/xtask/internal/runner"
)

// GeneratePrimary emits message definitions and service stubs as separate
// files into outDir, which is recreated first.
func (g *Generator) GeneratePrimary(ctx context.Context, includeRoot string, inputs []string, outDir string) error {
	layout := g.config.Layout
	protoc := g.config.Tools.Protoc

	if err := recreateDir(g.config.Path(outDir)); err != nil {
		return runner.Fail("primary", err)
	}

	args := []string{"-I" + includeRoot, fmt.Sprintf("%s=%s", layout.MessageOutFlag, outDir)}
	if err := g.runner.Run(ctx, runner.Cmd{
		Step: "primary: messages",
		Name: protoc,
		Args: append(args, inputs...),
	}); err != nil {
		return err
	}

	if err := g.runner.Run(ctx, runner.Cmd{
		Step: "primary: build plugin",
		Name: g.config.Tools.Cargo,
		Args: layout.PluginBuild,
	}); err != nil {
		return err
	}

	args = []string{
		"-I" + includeRoot,
		fmt.Sprintf("%s=%s", layout.StubOutFlag, outDir),
		fmt.Sprintf("--plugin=%s=%s", layout.PluginName, layout.PluginPath),
	}
	if err := g.runner.Run(ctx, runner.Cmd{
		Step: "primary: service stubs",
		Name: protoc,
		Args: append(args, inputs...),
	}); err != nil {
		return err
	}

	g.logger.Info().
		Str("out", outDir).
		Int("inputs", len(inputs)).
		Msg("generated primary codec")
	return nil
}
