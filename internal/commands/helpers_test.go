package commands

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/okra-platform/xtask/internal/config"
)

// loggingTool records its arguments and working directory, then exits
// with $XTASK_EXIT (default 0)
const loggingTool = `#!/bin/sh
echo "$(basename "$0") $* @$(pwd)" >> "$XTASK_LOG"
exit "${XTASK_EXIT:-0}"
`

type mockConfigLoader struct {
	mock.Mock
}

func (m *mockConfigLoader) LoadConfig() (*config.Config, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*config.Config), args.Error(1)
}

// loaderFor returns a loader expected to be asked for cfg exactly once
func loaderFor(t *testing.T, cfg *config.Config) *mockConfigLoader {
	t.Helper()
	loader := new(mockConfigLoader)
	loader.On("LoadConfig").Return(cfg, nil).Once()
	t.Cleanup(func() { loader.AssertExpectations(t) })
	return loader
}

// newToolWorkspace creates a workspace whose tools all log to a file
func newToolWorkspace(t *testing.T) (*config.Config, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	root := t.TempDir()
	bin := t.TempDir()
	logPath := filepath.Join(bin, "calls.log")
	t.Setenv("XTASK_LOG", logPath)
	t.Setenv("XTASK_EXIT", "0")

	cfg, err := config.Default(root)
	require.NoError(t, err)

	tools := map[string]*string{
		"protoc":       &cfg.Tools.Protoc,
		"cargo":        &cfg.Tools.Cargo,
		"git":          &cfg.Tools.Git,
		"clang-tidy":   &cfg.Tools.ClangTidy,
		"clang-format": &cfg.Tools.ClangFormat,
		"rustfmt":      &cfg.Tools.Rustfmt,
	}
	for name, field := range tools {
		path := filepath.Join(bin, name)
		require.NoError(t, os.WriteFile(path, []byte(loggingTool), 0755))
		*field = path
	}
	return cfg, logPath
}

func readCalls(t *testing.T, logPath string) []string {
	t.Helper()
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
