package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
)

// DefaultRequestTimeout bounds a single import request inside a batch run.
const DefaultRequestTimeout = 30 * time.Second

// ProgressReporter receives batch progress. Progress is called once per
// candidate after its outcome is known; Complete is called exactly once.
type ProgressReporter interface {
	Progress(progress entities.BatchProgress, candidate entities.ImportCandidate, outcome entities.ImportOutcome)
	Complete(summary entities.BatchSummary)
}

// ReporterFuncs adapts plain functions to ProgressReporter. Nil fields are
// skipped.
type ReporterFuncs struct {
	OnProgress func(entities.BatchProgress, entities.ImportCandidate, entities.ImportOutcome)
	OnComplete func(entities.BatchSummary)
}

func (r ReporterFuncs) Progress(p entities.BatchProgress, c entities.ImportCandidate, o entities.ImportOutcome) {
	if r.OnProgress != nil {
		r.OnProgress(p, c, o)
	}
}

func (r ReporterFuncs) Complete(s entities.BatchSummary) {
	if r.OnComplete != nil {
		r.OnComplete(s)
	}
}

// ItemResult pairs a candidate with the outcome of its import attempt.
type ItemResult struct {
	Candidate entities.ImportCandidate `json:"candidate"`
	Outcome   entities.ImportOutcome   `json:"outcome"`
}

// BatchResult is the full record of a batch run.
type BatchResult struct {
	Summary entities.BatchSummary `json:"summary"`
	Items   []ItemResult          `json:"items"`
}

// Conflicts returns the items that ended in a conflict, in input order.
func (r BatchResult) Conflicts() []ItemResult {
	var out []ItemResult
	for _, item := range r.Items {
		if item.Outcome.Kind == entities.OutcomeConflict {
			out = append(out, item)
		}
	}
	return out
}

// BatchImporter imports candidates strictly one after another.
type BatchImporter struct {
	backend        Backend
	logger         *zap.Logger
	requestTimeout time.Duration
}

type BatchOption func(*BatchImporter)

// WithRequestTimeout overrides DefaultRequestTimeout. Non-positive values
// are ignored.
func WithRequestTimeout(d time.Duration) BatchOption {
	return func(b *BatchImporter) {
		if d > 0 {
			b.requestTimeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) BatchOption {
	return func(b *BatchImporter) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBatchImporter(backend Backend, opts ...BatchOption) *BatchImporter {
	b := &BatchImporter{
		backend:        backend,
		logger:         zap.NewNop(),
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run imports candidates in order. Candidate i+1 is not attempted until the
// outcome of candidate i is known. Errors never stop the run; only ctx
// cancellation does, and it is checked between items. reporter may be nil.
func (b *BatchImporter) Run(ctx context.Context, candidates []entities.ImportCandidate, reporter ProgressReporter) BatchResult {
	if reporter == nil {
		reporter = ReporterFuncs{}
	}

	progress := entities.BatchProgress{Total: len(candidates)}
	result := BatchResult{Items: make([]ItemResult, 0, len(candidates))}
	cancelled := false

	b.logger.Info("batch import started", zap.Int("total", progress.Total))

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		outcome := b.importOne(ctx, candidate)

		progress.Completed++
		switch outcome.Kind {
		case entities.OutcomeSuccess:
			progress.SuccessCount++
		case entities.OutcomeConflict:
			progress.ConflictCount++
		default:
			progress.ErrorCount++
			b.logger.Warn("import failed",
				zap.String("dn", candidate.DN),
				zap.String("error", outcome.Error))
		}

		result.Items = append(result.Items, ItemResult{Candidate: candidate, Outcome: outcome})
		reporter.Progress(progress, candidate, outcome)
	}

	result.Summary = entities.BatchSummary{
		Success:   progress.SuccessCount,
		Conflicts: progress.ConflictCount,
		Errors:    progress.ErrorCount,
		Completed: progress.Completed,
		Total:     progress.Total,
		Cancelled: cancelled,
	}

	b.logger.Info("batch import finished",
		zap.Int("success", result.Summary.Success),
		zap.Int("conflicts", result.Summary.Conflicts),
		zap.Int("errors", result.Summary.Errors),
		zap.Bool("cancelled", cancelled))

	reporter.Complete(result.Summary)
	return result
}

type importResult struct {
	outcome entities.ImportOutcome
	err     error
}

// importOne never returns an error: every failure becomes an Error outcome.
func (b *BatchImporter) importOne(ctx context.Context, candidate entities.ImportCandidate) entities.ImportOutcome {
	reqCtx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	done := make(chan importResult, 1)
	go func() {
		outcome, err := b.backend.Import(reqCtx, candidate.DN)
		done <- importResult{outcome: outcome, err: err}
	}()

	var res importResult
	select {
	case res = <-done:
	case <-reqCtx.Done():
		res = importResult{err: ErrRequestTimeout}
		if ctx.Err() != nil {
			res.err = ctx.Err()
		}
	}

	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			res.err = ErrRequestTimeout
		}
		return entities.ErrorOutcome(res.err)
	}

	switch res.outcome.Kind {
	case entities.OutcomeSuccess, entities.OutcomeConflict:
		return res.outcome
	default:
		return entities.ErrorOutcome(fmt.Errorf("%w: unexpected outcome %q", ErrMalformedResponse, res.outcome.Kind))
	}
}
