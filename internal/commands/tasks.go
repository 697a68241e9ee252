package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// Tasks are the single-purpose maintenance commands of the native crate
type Tasks struct {
	config *config.Config
	runner *runner.Runner
	logger zerolog.Logger
}

func newTasks(loader ConfigLoader, logger zerolog.Logger) (*Tasks, error) {
	cfg, err := loader.LoadConfig()
	if err != nil {
		return nil, runner.Fail("config", fmt.Errorf("failed to load configuration: %w", err))
	}
	return NewTasks(cfg, runner.New(cfg.Root, logger), logger), nil
}

// NewTasks creates the task set for a workspace
func NewTasks(cfg *config.Config, r *runner.Runner, logger zerolog.Logger) *Tasks {
	return &Tasks{
		config: cfg,
		runner: r,
		logger: logger.With().Str("component", "tasks").Logger(),
	}
}

// Bindgen regenerates the raw bindings of grpcio-sys
func (t *Tasks) Bindgen(ctx context.Context) error {
	return t.runner.Run(ctx, runner.Cmd{
		Step: "bindgen",
		Name: t.config.Tools.Cargo,
		Args: []string{"build", "-p", "grpcio-sys", "--features", "_gen-bindings"},
		Dir:  "grpc-sys",
	})
}

// Submodule checks out grpc and the third party sources it builds with
func (t *Tasks) Submodule(ctx context.Context) error {
	git := t.config.Tools.Git
	const thirdParty = "grpc-sys/grpc/third_party"

	if err := t.runner.Run(ctx, runner.Cmd{
		Step: "submodule",
		Name: git,
		Args: []string{"submodule", "update", "--init", "grpc-sys/grpc"},
	}); err != nil {
		return err
	}

	for _, dir := range []string{"cares/cares", "abseil-cpp", "re2"} {
		if err := t.runner.Run(ctx, runner.Cmd{
			Step: "submodule",
			Name: git,
			Args: []string{"submodule", "update", "--init", dir},
			Dir:  thirdParty,
		}); err != nil {
			return err
		}
	}

	// boringssl-with-bazel is left as an empty directory
	boringssl := filepath.Join(thirdParty, "boringssl-with-bazel")
	if err := emptyDir(t.config.Path(boringssl)); err != nil {
		return runner.Fail("submodule", err)
	}
	t.logger.Debug().Str("dir", boringssl).Msg("emptied")

	zlib := filepath.Join(thirdParty, "zlib")
	if err := t.runner.Run(ctx, runner.Cmd{Step: "submodule", Name: git, Args: []string{"clean", "-df"}, Dir: zlib}); err != nil {
		return err
	}
	return t.runner.Run(ctx, runner.Cmd{Step: "submodule", Name: git, Args: []string{"reset", "--hard"}, Dir: zlib})
}

// ClangLint lints the C++ wrapper and formats it in place
func (t *Tasks) ClangLint(ctx context.Context) error {
	if err := t.runner.Run(ctx, runner.Cmd{
		Step: "clang-lint",
		Name: t.config.Tools.ClangTidy,
		Args: []string{"grpc-sys/grpc_wrap.cc", "--", "-Igrpc-sys/grpc/include", "-x", "c++", "-std=c++11"},
	}); err != nil {
		return err
	}
	return t.runner.Run(ctx, runner.Cmd{
		Step: "clang-lint",
		Name: t.config.Tools.ClangFormat,
		Args: []string{"-i", "grpc-sys/grpc_wrap.cc"},
	})
}

// RefreshPackage regenerates grpc-sys/link-deps.rs
func (t *Tasks) RefreshPackage(ctx context.Context) error {
	if err := t.runner.Run(ctx, runner.Cmd{
		Step: "refresh-package",
		Name: t.config.Tools.Cargo,
		Args: []string{"build", "-p", "grpcio-sys", "--features", "_list-package"},
		Dir:  "grpc-sys",
	}); err != nil {
		return err
	}
	return t.runner.Run(ctx, runner.Cmd{
		Step: "refresh-package",
		Name: t.config.Tools.Rustfmt,
		Args: []string{"grpc-sys/link-deps.rs"},
	})
}

// emptyDir removes every entry of dir, keeping dir itself
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
	}
	return nil
}
