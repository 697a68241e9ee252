package codegen

import (
	"context"
	"fmt"
	"time"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// CheckTools verifies the schema compiler and the builder are invocable
func (g *Generator) CheckTools() error {
	if err := g.runner.LookPath("check tools", g.config.Tools.Protoc); err != nil {
		return err
	}
	return g.runner.LookPath("check tools", g.config.Tools.Cargo)
}

// Run generates both codecs for a single target
func (g *Generator) Run(ctx context.Context, t config.Target) error {
	start := time.Now()
	layout := g.config.Layout
	root := g.config.Root

	inputs, err := Resolve(root, t.IncludeRoot, t.Packages, layout.SchemaExt)
	if err != nil {
		return runner.Fail("resolve", err)
	}
	g.logger.Debug().
		Str("target", t.Name()).
		Strs("inputs", inputs).
		Msg("resolved inputs")

	primary := layout.PrimaryOut(t)
	if err := g.GeneratePrimary(ctx, t.IncludeRoot, inputs, primary); err != nil {
		return err
	}
	if err := ApplyPatches(root, g.config.PatchesFor(t)); err != nil {
		return err
	}
	if err := Finalize(g.config.Path(primary), layout); err != nil {
		return err
	}

	if err := g.GenerateAlternate(ctx, t.IncludeRoot, inputs, layout.AlternateOut(t)); err != nil {
		return err
	}

	g.logger.Info().
		Str("target", t.Name()).
		Dur("duration", time.Since(start)).
		Msg("target generated")
	return nil
}

// RunAll processes targets strictly in order and formats the workspace once
// at the end. The first failure stops the run. Patch rules are checked
// against the whole target table before anything runs.
func (g *Generator) RunAll(ctx context.Context, targets []config.Target) error {
	if err := g.config.ValidatePatches(); err != nil {
		return runner.Fail("patch", err)
	}

	for _, t := range targets {
		if err := g.Run(ctx, t); err != nil {
			return fmt.Errorf("target %s: %w", t.Name(), err)
		}
	}

	return g.runner.Run(ctx, runner.Cmd{
		Step: "format",
		Name: g.config.Tools.Cargo,
		Args: g.config.Layout.Format,
	})
}

// SelectTargets filters the table by target name, keeping table order.
// No names selects every target.
func SelectTargets(targets []config.Target, names []string) ([]config.Target, error) {
	if len(names) == 0 {
		return targets, nil
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = false
	}

	var selected []config.Target
	for _, t := range targets {
		if _, ok := wanted[t.Name()]; ok {
			wanted[t.Name()] = true
			selected = append(selected, t)
		}
	}

	for _, n := range names {
		if !wanted[n] {
			return nil, fmt.Errorf("unknown target: %s", n)
		}
	}
	return selected, nil
}
