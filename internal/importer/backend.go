package importer

import (
	"context"

	"github.com/mrlokans/phonedir/internal/entities"
)

// Backend performs single-item import operations.
//
// Import returns a Success or Conflict outcome. Network failures, backend
// rejections and malformed responses are returned as errors.
type Backend interface {
	Import(ctx context.Context, dn string) (entities.ImportOutcome, error)
	ResolveConflict(ctx context.Context, contactID uint, action entities.ResolutionAction, dn string) error
}

// Searcher finds import candidates in the directory.
type Searcher interface {
	Search(ctx context.Context, query SearchQuery) ([]entities.ImportCandidate, error)
}

// SearchQuery is a free-text directory search with affiliation exclusions.
type SearchQuery struct {
	Term            string `json:"search_term"`
	ExcludeStudents bool   `json:"exclude_students"`
	ExcludeAlumni   bool   `json:"exclude_alumni"`
}
