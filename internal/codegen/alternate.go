package codegen

import (
	"context"
	"strings"

	"github.com/okra-platform/xtask/internal/runner"
)

// GenerateAlternate emits one combined message and service file per schema
// module into outDir, which is recreated first. The generator finds the
// schema compiler through PROTOC.
func (g *Generator) GenerateAlternate(ctx context.Context, includeRoot string, inputs []string, outDir string) error {
	layout := g.config.Layout
	env := []string{"PROTOC=" + g.runner.Resolve(g.config.Tools.Protoc)}

	if err := recreateDir(g.config.Path(outDir)); err != nil {
		return runner.Fail("alternate", err)
	}

	if err := g.runner.Run(ctx, runner.Cmd{
		Step: "alternate: build generator",
		Name: g.config.Tools.Cargo,
		Args: layout.AlternateBuild,
		Dir:  layout.AlternateBuildDir,
		Env:  env,
	}); err != nil {
		return err
	}

	if err := g.runner.Run(ctx, runner.Cmd{
		Step: "alternate: generate",
		Name: layout.AlternateBinary,
		Args: []string{
			"--protos=" + strings.Join(inputs, ","),
			"--includes=" + includeRoot,
			"--out-dir=" + outDir,
		},
		Env: env,
	}); err != nil {
		return err
	}

	g.logger.Info().
		Str("out", outDir).
		Int("inputs", len(inputs)).
		Msg("generated alternate codec")
	return nil
}
