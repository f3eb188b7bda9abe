package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
)

// Conflict identifies a UID collision between an import candidate and an
// existing manual contact.
type Conflict struct {
	ContactID uint
	UID       string
	Candidate entities.ImportCandidate
}

// Chooser yields exactly one resolution action for a conflict.
type Chooser interface {
	Choose(ctx context.Context, conflict Conflict) (entities.ResolutionAction, error)
}

// ConfirmFunc asks a yes/no question.
type ConfirmFunc func(ctx context.Context, question string) (bool, error)

// SelectFunc asks the operator to pick one of options.
type SelectFunc func(ctx context.Context, title string, options []entities.ResolutionAction) (entities.ResolutionAction, error)

// NestedConfirmChooser asks two binary questions. The first accepts a merge
// of empty fields; declining it leads to the second, which accepts
// replacing the contact with directory data. Declining both keeps the
// manual contact.
type NestedConfirmChooser struct {
	Confirm ConfirmFunc
}

func (c NestedConfirmChooser) Choose(ctx context.Context, conflict Conflict) (entities.ResolutionAction, error) {
	merge, err := c.Confirm(ctx, fmt.Sprintf(
		"A manual contact with UID %q already exists. Merge empty fields from the directory and link it?", conflict.UID))
	if err != nil {
		return "", err
	}
	if merge {
		return entities.ResolutionMergeLink, nil
	}

	replace, err := c.Confirm(ctx, "Replace the manual contact with directory data?")
	if err != nil {
		return "", err
	}
	if replace {
		return entities.ResolutionUseDirectory, nil
	}
	return entities.ResolutionKeepManual, nil
}

// SelectChooser offers the three actions as one explicit selection.
type SelectChooser struct {
	Select SelectFunc
}

func (c SelectChooser) Choose(ctx context.Context, conflict Conflict) (entities.ResolutionAction, error) {
	action, err := c.Select(ctx,
		fmt.Sprintf("UID %q conflicts with manual contact #%d", conflict.UID, conflict.ContactID),
		entities.ResolutionActions)
	if err != nil {
		return "", err
	}
	if !action.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrResolutionCancelled, action)
	}
	return action, nil
}

// Resolver dispatches the operator's choice for a conflict to the backend.
type Resolver struct {
	backend Backend
	chooser Chooser
	logger  *zap.Logger
}

func NewResolver(backend Backend, chooser Chooser, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{backend: backend, chooser: chooser, logger: logger}
}

// Resolve asks the chooser for an action and issues exactly one resolve
// request. A failed request is returned as is; the conflict stays
// unresolved on the backend and nothing is retried.
func (r *Resolver) Resolve(ctx context.Context, conflict Conflict) (entities.ResolutionAction, error) {
	action, err := r.chooser.Choose(ctx, conflict)
	if err != nil {
		return "", fmt.Errorf("choose resolution: %w", err)
	}
	if !action.Valid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrResolutionCancelled, action)
	}

	if err := r.backend.ResolveConflict(ctx, conflict.ContactID, action, conflict.Candidate.DN); err != nil {
		r.logger.Warn("conflict resolution failed",
			zap.Uint("contact_id", conflict.ContactID),
			zap.String("action", string(action)),
			zap.Error(err))
		return action, err
	}

	r.logger.Info("conflict resolved",
		zap.Uint("contact_id", conflict.ContactID),
		zap.String("uid", conflict.UID),
		zap.String("action", string(action)))
	return action, nil
}

// SingleResult is the outcome of an interactive single-candidate import.
type SingleResult struct {
	Outcome  entities.ImportOutcome
	Action   entities.ResolutionAction // set when a conflict was resolved
	Resolved bool
}

// ImportOne imports a single candidate and, on conflict, resolves it
// interactively.
func (r *Resolver) ImportOne(ctx context.Context, candidate entities.ImportCandidate) (SingleResult, error) {
	outcome, err := r.backend.Import(ctx, candidate.DN)
	if err != nil {
		return SingleResult{Outcome: entities.ErrorOutcome(err)}, err
	}

	result := SingleResult{Outcome: outcome}
	if outcome.Kind != entities.OutcomeConflict {
		return result, nil
	}

	action, err := r.Resolve(ctx, Conflict{
		ContactID: outcome.ExistingContactID,
		UID:       outcome.UID,
		Candidate: candidate,
	})
	result.Action = action
	if err != nil {
		return result, err
	}
	result.Resolved = true
	return result, nil
}
