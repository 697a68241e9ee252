// Package codegen drives the schema compilers and post-processes their output
package codegen

import (
	"github.com/rs/zerolog"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// Generator runs the generation pipeline for a workspace
type Generator struct {
	config *config.Config
	runner *runner.Runner
	logger zerolog.Logger
}

// NewGenerator creates a generator. Subprocesses run through r, which
// should be rooted at the workspace root.
func NewGenerator(cfg *config.Config, r *runner.Runner, logger zerolog.Logger) *Generator {
	return &Generator{
		config: cfg,
		runner: r,
		logger: logger.With().Str("component", "codegen").Logger(),
	}
}
