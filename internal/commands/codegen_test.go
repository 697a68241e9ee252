package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// Test plan for the codegen command:
// 1. Configuration errors fail before any tool runs
// 2. --target restricts the run in table order
// 3. --select uses the picker's choice
// 4. Subprocess exit status is propagated
// 5. Missing tools are environment errors

type mockPicker struct {
	mock.Mock
}

func (m *mockPicker) Pick(targets []config.Target) ([]config.Target, error) {
	args := m.Called(targets)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]config.Target), args.Error(1)
}

func newCodegenWorkspace(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg, logPath := newToolWorkspace(t)

	cfg.Targets = []config.Target{
		{IncludeRoot: "proto", Packages: []string{"grpc/testing"}, OutputRoot: "gen", Namespace: "testing"},
		{IncludeRoot: "proto", Packages: []string{"grpc/example"}, OutputRoot: "gen", Namespace: "example"},
	}
	cfg.Patches = []config.PatchRule{}
	for _, pkg := range []string{"grpc/testing", "grpc/example"} {
		dir := filepath.Join(cfg.Root, "proto", pkg)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.Base(pkg)+".proto"), nil, 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Root, "compiler"), 0755))
	alt := filepath.Join(cfg.Root, cfg.Layout.AlternateBinary)
	require.NoError(t, os.MkdirAll(filepath.Dir(alt), 0755))
	require.NoError(t, os.WriteFile(alt, []byte(loggingTool), 0755))

	return cfg, logPath
}

func protocCalls(calls []string) []string {
	var out []string
	for _, c := range calls {
		if strings.HasPrefix(c, "protoc ") {
			out = append(out, c)
		}
	}
	return out
}

func TestCodegenCommand_ConfigError(t *testing.T) {
	loader := new(mockConfigLoader)
	loader.On("LoadConfig").Return(nil, errors.New("bad yaml"))
	cmd := NewCodegenCommand(loader, zerolog.Nop())

	err := cmd.Execute(context.Background(), CodegenOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
	assert.Equal(t, runner.FailureStatus, runner.ExitStatus(err))
	loader.AssertExpectations(t)
}

func TestCodegenCommand_AllTargets(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	cmd := NewCodegenCommand(loaderFor(t, cfg), zerolog.Nop())

	require.NoError(t, cmd.Execute(context.Background(), CodegenOptions{}))

	calls := readCalls(t, logPath)
	protoc := protocCalls(calls)
	require.Len(t, protoc, 4)
	assert.Contains(t, protoc[0], "proto/grpc/testing/testing.proto")
	assert.Contains(t, protoc[2], "proto/grpc/example/example.proto")
	assert.True(t, strings.HasPrefix(calls[len(calls)-1], "cargo fmt --all"))
	assert.DirExists(t, filepath.Join(cfg.Root, "gen", "protobuf", "example"))
	assert.DirExists(t, filepath.Join(cfg.Root, "gen", "prost", "testing"))
}

func TestCodegenCommand_TargetFlag(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	cmd := NewCodegenCommand(loaderFor(t, cfg), zerolog.Nop())

	require.NoError(t, cmd.Execute(context.Background(), CodegenOptions{Targets: []string{"example"}}))

	for _, c := range protocCalls(readCalls(t, logPath)) {
		assert.NotContains(t, c, "grpc/testing")
	}
	assert.NoDirExists(t, filepath.Join(cfg.Root, "gen", "protobuf", "testing"))
}

func TestCodegenCommand_UnknownTarget(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	cmd := NewCodegenCommand(loaderFor(t, cfg), zerolog.Nop())

	err := cmd.Execute(context.Background(), CodegenOptions{Targets: []string{"missing"}})
	assert.ErrorContains(t, err, "unknown target: missing")
	assert.Empty(t, readCalls(t, logPath))
}

func TestCodegenCommand_Select(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	picker := new(mockPicker)
	picker.On("Pick", cfg.Targets).Return(cfg.Targets[:1], nil).Once()
	cmd := NewCodegenCommand(nil, zerolog.Nop()).WithDependencies(CodegenDependencies{
		ConfigLoader: loaderFor(t, cfg),
		Picker:       picker,
		Logger:       zerolog.Nop(),
	})

	require.NoError(t, cmd.Execute(context.Background(), CodegenOptions{Select: true}))

	picker.AssertExpectations(t)
	protoc := protocCalls(readCalls(t, logPath))
	require.Len(t, protoc, 2)
	for _, c := range protoc {
		assert.Contains(t, c, "grpc/testing")
	}
}

func TestCodegenCommand_SelectAborted(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	picker := new(mockPicker)
	picker.On("Pick", cfg.Targets).Return(nil, errors.New("user aborted")).Once()
	cmd := NewCodegenCommand(nil, zerolog.Nop()).WithDependencies(CodegenDependencies{
		ConfigLoader: loaderFor(t, cfg),
		Picker:       picker,
		Logger:       zerolog.Nop(),
	})

	err := cmd.Execute(context.Background(), CodegenOptions{Select: true})
	assert.ErrorContains(t, err, "user aborted")
	assert.Empty(t, readCalls(t, logPath))
	picker.AssertExpectations(t)
}

func TestCodegenCommand_PropagatesExitStatus(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	t.Setenv("XTASK_EXIT", "3")
	cmd := NewCodegenCommand(loaderFor(t, cfg), zerolog.Nop())

	err := cmd.Execute(context.Background(), CodegenOptions{})
	require.Error(t, err)
	assert.Equal(t, 3, runner.ExitStatus(err))
	assert.Len(t, readCalls(t, logPath), 1)
}

func TestCodegenCommand_MissingTool(t *testing.T) {
	cfg, logPath := newCodegenWorkspace(t)
	cfg.Tools.Protoc = filepath.Join(t.TempDir(), "protoc")
	cmd := NewCodegenCommand(loaderFor(t, cfg), zerolog.Nop())

	err := cmd.Execute(context.Background(), CodegenOptions{})
	require.Error(t, err)
	assert.Equal(t, runner.SignalStatus, runner.ExitStatus(err))
	assert.Empty(t, readCalls(t, logPath))
}
