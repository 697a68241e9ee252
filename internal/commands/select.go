package commands

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/okra-platform/xtask/internal/codegen"
	"github.com/okra-platform/xtask/internal/config"
)

// TargetPicker chooses a subset of the generation targets
type TargetPicker interface {
	Pick(targets []config.Target) ([]config.Target, error)
}

type formPicker struct {
	// For testing: drive the form through a custom program
	opts []tea.ProgramOption
}

func (p *formPicker) Pick(targets []config.Target) ([]config.Target, error) {
	var names []string
	form := createTargetForm(targets, &names)

	if len(p.opts) > 0 {
		program := tea.NewProgram(form, p.opts...)
		if _, err := program.Run(); err != nil {
			return nil, err
		}
	} else {
		if err := form.Run(); err != nil {
			return nil, err
		}
	}

	// Table order wins over the order of selection
	return codegen.SelectTargets(targets, names)
}

func createTargetForm(targets []config.Target, names *[]string) *huh.Form {
	options := make([]huh.Option[string], 0, len(targets))
	for _, t := range targets {
		label := fmt.Sprintf("%s (%s → %s)", t.Name(), t.IncludeRoot, t.OutputRoot)
		options = append(options, huh.NewOption(label, t.Name()))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Targets").
				Description("Choose the targets to regenerate").
				Options(options...).
				Value(names).
				Validate(func(selected []string) error {
					if len(selected) == 0 {
						return fmt.Errorf("select at least one target")
					}
					return nil
				}),
		),
	)
}
