package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// Finalize merges the service stubs of the primary codec into their
// message files and strips runtime version assertions from every generated
// file in dir. dir must be freshly generated: the merge appends.
func Finalize(dir string, layout config.Layout) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return runner.Fail("finalize", fmt.Errorf("failed to read %s: %w", dir, err))
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != layout.GeneratedExt {
			continue
		}
		path := filepath.Join(dir, name)

		module := strings.TrimSuffix(name, layout.GeneratedExt)
		if base, ok := strings.CutSuffix(module, layout.StubSuffix); ok && base != "" {
			if err := mergeStub(dir, base, module, layout); err != nil {
				return runner.Fail("finalize", err)
			}
		}

		if err := modify(path, func(content string) string {
			return RemoveMatching(content, layout.VersionMarker)
		}); err != nil {
			return runner.Fail("finalize", err)
		}
	}
	return nil
}

// mergeStub makes the stub module reachable through its message module
func mergeStub(dir, base, stubModule string, layout config.Layout) error {
	target := filepath.Join(dir, base+layout.GeneratedExt)
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("service stub %s has no message file: %w", stubModule+layout.GeneratedExt, err)
	}
	return modify(target, func(content string) string {
		return content + fmt.Sprintf(layout.Reexport, stubModule)
	})
}

// RemoveMatching drops every line containing marker. The remaining lines
// keep their order and are each terminated by a newline.
func RemoveMatching(content, marker string) string {
	var b strings.Builder
	b.Grow(len(content))
	for line := range strings.Lines(content) {
		if strings.Contains(line, marker) {
			continue
		}
		b.WriteString(strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"))
		b.WriteByte('\n')
	}
	return b.String()
}
