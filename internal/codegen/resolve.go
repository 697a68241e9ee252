package codegen

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Resolve lists the schema files directly under each package of includeRoot.
// root anchors the lookup; the returned paths stay relative to it so that
// compilers never see machine-specific absolute paths.
//
// The result is deduplicated and sorted by full path. Compilers may embed
// input order in their output, so directory iteration order must not leak.
func Resolve(root, includeRoot string, packages []string, ext string) ([]string, error) {
	seen := make(map[string]struct{})
	var inputs []string

	for _, pkg := range packages {
		dir := filepath.Join(includeRoot, pkg)
		entries, err := os.ReadDir(anchor(root, dir))
		if err != nil {
			return nil, fmt.Errorf("failed to read package %s: %w", dir, err)
		}

		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ext {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			inputs = append(inputs, p)
		}
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("no %s files found under %s", ext, includeRoot)
	}

	sort.Strings(inputs)
	return inputs, nil
}
