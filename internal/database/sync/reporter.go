package sync

import (
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

var _ importer.ProgressReporter = (*BatchReporter)(nil)

// BatchReporter persists batch import progress for one run.
type BatchReporter struct {
	repo   *Repository
	runID  string
	logger *zap.Logger
}

func NewBatchReporter(repo *Repository, runID string, logger *zap.Logger) *BatchReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchReporter{repo: repo, runID: runID, logger: logger}
}

func (r *BatchReporter) Progress(p entities.BatchProgress, c entities.ImportCandidate, _ entities.ImportOutcome) {
	current := c.Name
	if current == "" {
		current = c.DN
	}
	if err := r.repo.UpdateProgress(r.runID, p.Completed, p.SuccessCount, p.ConflictCount, p.ErrorCount, current); err != nil {
		r.logger.Warn("failed to store batch progress", zap.String("run_id", r.runID), zap.Error(err))
	}
}

func (r *BatchReporter) Complete(s entities.BatchSummary) {
	msg := ""
	if s.Cancelled {
		msg = "run cancelled before all candidates were attempted"
	}
	if err := r.repo.Complete(r.runID, !s.Cancelled, msg); err != nil {
		r.logger.Warn("failed to complete batch progress", zap.String("run_id", r.runID), zap.Error(err))
	}
}
