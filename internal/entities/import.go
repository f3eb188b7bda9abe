package entities

import "fmt"

// ImportCandidate is a directory entry offered for import. It is produced by
// a directory search and never modified afterwards.
type ImportCandidate struct {
	DN    string `json:"dn"`
	Name  string `json:"name"`
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

type OutcomeKind string

const (
	OutcomeSuccess  OutcomeKind = "success"
	OutcomeConflict OutcomeKind = "conflict"
	OutcomeError    OutcomeKind = "error"
)

// ImportOutcome is the result of one import attempt. Exactly one of the
// kind-specific field groups is meaningful.
type ImportOutcome struct {
	Kind OutcomeKind `json:"kind"`

	// Success
	Message string `json:"message,omitempty"`

	// Conflict
	ExistingContactID uint   `json:"contact_id,omitempty"`
	UID               string `json:"uid,omitempty"`

	// Error
	Error string `json:"error,omitempty"`
}

func SuccessOutcome(message string) ImportOutcome {
	return ImportOutcome{Kind: OutcomeSuccess, Message: message}
}

func ConflictOutcome(contactID uint, uid, message string) ImportOutcome {
	return ImportOutcome{Kind: OutcomeConflict, ExistingContactID: contactID, UID: uid, Message: message}
}

func ErrorOutcome(err error) ImportOutcome {
	return ImportOutcome{Kind: OutcomeError, Error: err.Error()}
}

func (o ImportOutcome) String() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "success"
	case OutcomeConflict:
		return fmt.Sprintf("conflict with contact %d (uid %s)", o.ExistingContactID, o.UID)
	default:
		return "error: " + o.Error
	}
}

// ResolutionAction is the operator's choice for a UID conflict between a
// manual contact and a directory entry.
type ResolutionAction string

const (
	// ResolutionKeepManual clears the conflict flag and changes nothing else.
	ResolutionKeepManual ResolutionAction = "keep_manual"
	// ResolutionUseDirectory overwrites the contact with directory data.
	ResolutionUseDirectory ResolutionAction = "use_ldap"
	// ResolutionMergeLink fills empty fields from the directory and links
	// the contact to the directory entry.
	ResolutionMergeLink ResolutionAction = "merge_ldap"
)

// Valid reports whether a is one of the three known actions.
func (a ResolutionAction) Valid() bool {
	switch a {
	case ResolutionKeepManual, ResolutionUseDirectory, ResolutionMergeLink:
		return true
	}
	return false
}

func (a ResolutionAction) Label() string {
	switch a {
	case ResolutionKeepManual:
		return "Keep the manual contact as is"
	case ResolutionUseDirectory:
		return "Replace with directory data"
	case ResolutionMergeLink:
		return "Fill empty fields from directory and link"
	}
	return string(a)
}

// ResolutionActions lists the actions in prompt order.
var ResolutionActions = []ResolutionAction{
	ResolutionMergeLink,
	ResolutionUseDirectory,
	ResolutionKeepManual,
}

// BatchProgress is the cumulative state of a batch import run.
// SuccessCount+ConflictCount+ErrorCount always equals Completed, and
// Completed never exceeds Total.
type BatchProgress struct {
	Total         int `json:"total"`
	Completed     int `json:"completed"`
	SuccessCount  int `json:"success"`
	ConflictCount int `json:"conflicts"`
	ErrorCount    int `json:"errors"`
}

// Percent returns the completion percentage; an empty batch is 100%.
func (p BatchProgress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

// Text renders "completed/total".
func (p BatchProgress) Text() string {
	return fmt.Sprintf("%d/%d", p.Completed, p.Total)
}

// BatchSummary is reported once a batch run finishes.
type BatchSummary struct {
	Success   int  `json:"success"`
	Conflicts int  `json:"conflicts"`
	Errors    int  `json:"errors"`
	Completed int  `json:"completed"`
	Total     int  `json:"total"`
	Cancelled bool `json:"cancelled"`
}

func (s BatchSummary) String() string {
	msg := fmt.Sprintf("Import completed: %d successful, %d conflicts, %d errors", s.Success, s.Conflicts, s.Errors)
	if s.Cancelled {
		msg += fmt.Sprintf(" (stopped after %d of %d)", s.Completed, s.Total)
	}
	return msg
}
