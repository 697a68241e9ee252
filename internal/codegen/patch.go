package codegen

import (
	"strings"

	"github.com/okra-platform/xtask/internal/config"
	"github.com/okra-platform/xtask/internal/runner"
)

// Apply runs the substitutions of rule over content in listed order, each
// one replacing every occurrence across the whole content.
//
// The replacement is literal, not token aware: an old value that is a
// substring of an unrelated identifier is rewritten too. Rules are written
// against known generated output, and their order is what keeps a broad
// substitution (UNKNOWN) from touching text owned by a narrower one
// (SERVICE_UNKNOWN).
func Apply(rule config.PatchRule, content string) string {
	for _, s := range rule.Substitutions {
		content = strings.ReplaceAll(content, s.Old, s.New)
	}
	return content
}

// ApplyPatches rewrites every rule's file in place. The files must exist.
func ApplyPatches(root string, rules []config.PatchRule) error {
	for _, rule := range rules {
		path := anchor(root, rule.File)
		if err := modify(path, func(content string) string {
			return Apply(rule, content)
		}); err != nil {
			return runner.Fail("patch", err)
		}
	}
	return nil
}
