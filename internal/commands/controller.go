// Package commands contains the CLI commands for the application
package commands

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/okra-platform/xtask/internal/config"
)

type Flags struct {
	LogLevel string
	Config   string
}

type Controller struct {
	Flags *Flags
}

// ConfigLoader loads the workspace configuration
type ConfigLoader interface {
	LoadConfig() (*config.Config, error)
}

type defaultConfigLoader struct {
	path string
}

func (l *defaultConfigLoader) LoadConfig() (*config.Config, error) {
	if l.path != "" {
		return config.LoadConfigFromPath(l.path)
	}
	return config.LoadConfig()
}

func (c *Controller) configLoader() ConfigLoader {
	return &defaultConfigLoader{path: c.Flags.Config}
}

// Codegen regenerates the protocol bindings
func (c *Controller) Codegen(ctx context.Context, opts CodegenOptions) error {
	cmd := NewCodegenCommand(c.configLoader(), log.Logger)
	return cmd.Execute(ctx, opts)
}

// Bindgen regenerates the raw C bindings
func (c *Controller) Bindgen(ctx context.Context) error {
	tasks, err := newTasks(c.configLoader(), log.Logger)
	if err != nil {
		return err
	}
	return tasks.Bindgen(ctx)
}

// Submodule initialises the submodules needed for compilation
func (c *Controller) Submodule(ctx context.Context) error {
	tasks, err := newTasks(c.configLoader(), log.Logger)
	if err != nil {
		return err
	}
	return tasks.Submodule(ctx)
}

// ClangLint lints and formats the C++ wrapper
func (c *Controller) ClangLint(ctx context.Context) error {
	tasks, err := newTasks(c.configLoader(), log.Logger)
	if err != nil {
		return err
	}
	return tasks.ClangLint(ctx)
}

// RefreshPackage regenerates the list of linked native libraries
func (c *Controller) RefreshPackage(ctx context.Context) error {
	tasks, err := newTasks(c.configLoader(), log.Logger)
	if err != nil {
		return err
	}
	return tasks.RefreshPackage(ctx)
}
