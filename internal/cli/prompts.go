package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

// confirm asks a yes/no question in the terminal.
func confirm(ctx context.Context, question string) (bool, error) {
	var answer bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&answer),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return false, promptError(err)
	}
	return answer, nil
}

// selectAction offers the resolution actions as a single list.
func selectAction(ctx context.Context, title string, actions []entities.ResolutionAction) (entities.ResolutionAction, error) {
	var choice entities.ResolutionAction
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[entities.ResolutionAction]().
				Title(title).
				Options(actionOptions(actions)...).
				Value(&choice),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return "", promptError(err)
	}
	return choice, nil
}

// pickCandidates lets the operator tick the search results to import.
// The returned slice keeps the search order.
func pickCandidates(ctx context.Context, candidates []entities.ImportCandidate) ([]entities.ImportCandidate, error) {
	var picked []int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title(fmt.Sprintf("Select contacts to import (%d found)", len(candidates))).
				Options(candidateOptions(candidates)...).
				Value(&picked),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return nil, promptError(err)
	}
	return selectedCandidates(candidates, picked), nil
}

// chooser returns the conflict prompt flavour requested on the command line.
func chooser(single bool) importer.Chooser {
	if single {
		return importer.SelectChooser{Select: selectAction}
	}
	return importer.NestedConfirmChooser{Confirm: confirm}
}

func actionOptions(actions []entities.ResolutionAction) []huh.Option[entities.ResolutionAction] {
	options := make([]huh.Option[entities.ResolutionAction], 0, len(actions))
	for _, action := range actions {
		options = append(options, huh.NewOption(action.Label(), action))
	}
	return options
}

func candidateOptions(candidates []entities.ImportCandidate) []huh.Option[int] {
	options := make([]huh.Option[int], 0, len(candidates))
	for i, c := range candidates {
		options = append(options, huh.NewOption(candidateLabel(c), i))
	}
	return options
}

func candidateLabel(c entities.ImportCandidate) string {
	name := c.Name
	if name == "" {
		name = c.DN
	}
	if c.UID == "" {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, c.UID)
}

func selectedCandidates(candidates []entities.ImportCandidate, picked []int) []entities.ImportCandidate {
	chosen := make(map[int]bool, len(picked))
	for _, i := range picked {
		chosen[i] = true
	}
	var out []entities.ImportCandidate
	for i, c := range candidates {
		if chosen[i] {
			out = append(out, c)
		}
	}
	return out
}

func promptError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return importer.ErrResolutionCancelled
	}
	return err
}
