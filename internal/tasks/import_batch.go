package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	syncrepo "github.com/mrlokans/phonedir/internal/database/sync"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

var ErrBatchTooLarge = errors.New("too many candidates in one batch")

// Notifier stores user-facing notifications.
type Notifier interface {
	Notify(title, message string) error
}

// ImportBatchTask imports a list of directory entries one after another.
// Progress is persisted under RunID.
type ImportBatchTask struct {
	RunID      string                     `json:"run_id"`
	Candidates []entities.ImportCandidate `json:"candidates"`
}

// Config returns the queue configuration for batch import tasks. A batch is
// never retried: its items may already have been imported.
func (t ImportBatchTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "import_batch",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportBatchProcessor runs the batch importer over backend and records
// per-item progress in runs.
func ImportBatchProcessor(backend importer.Backend, runs *syncrepo.Repository, notifier Notifier, requestTimeout time.Duration, logger *zap.Logger) backlite.QueueProcessor[ImportBatchTask] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task ImportBatchTask) error {
		if backend == nil {
			return fmt.Errorf("import backend not configured")
		}
		if err := runs.Start(task.RunID, entities.SyncTypeImportBatch, len(task.Candidates)); err != nil {
			return fmt.Errorf("start batch run: %w", err)
		}

		runLogger := logger.With(zap.String("run_id", task.RunID))
		batch := importer.NewBatchImporter(backend,
			importer.WithRequestTimeout(requestTimeout),
			importer.WithLogger(runLogger))
		result := batch.Run(ctx, task.Candidates, syncrepo.NewBatchReporter(runs, task.RunID, runLogger))

		if notifier != nil {
			if err := notifier.Notify("Batch Import Complete", result.Summary.String()); err != nil {
				runLogger.Warn("failed to store notification", zap.Error(err))
			}
		}
		return nil
	}
}

// NewImportBatchQueue creates a backlite queue for batch import tasks.
func NewImportBatchQueue(backend importer.Backend, runs *syncrepo.Repository, notifier Notifier, requestTimeout time.Duration, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ImportBatchProcessor(backend, runs, notifier, requestTimeout, logger))
}

// BatchImports accepts batch import requests and hands them to the queue.
type BatchImports struct {
	client  *Client
	runs    *syncrepo.Repository
	maxSize func() int
	logger  *zap.Logger
}

// NewBatchImports creates a BatchImports. maxSize is read on every request;
// a non-positive size disables the check.
func NewBatchImports(client *Client, runs *syncrepo.Repository, maxSize func() int, logger *zap.Logger) *BatchImports {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchImports{client: client, runs: runs, maxSize: maxSize, logger: logger}
}

// Enqueue records a new run and queues its task. An empty batch completes
// immediately with zero counts.
func (b *BatchImports) Enqueue(ctx context.Context, candidates []entities.ImportCandidate) (string, error) {
	if b.maxSize != nil {
		if limit := b.maxSize(); limit > 0 && len(candidates) > limit {
			return "", fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(candidates), limit)
		}
	}

	runID := uuid.NewString()
	if err := b.runs.Enqueue(runID, entities.SyncTypeImportBatch, len(candidates)); err != nil {
		return "", err
	}
	if len(candidates) == 0 {
		return runID, b.runs.Complete(runID, true, "")
	}

	task := ImportBatchTask{RunID: runID, Candidates: candidates}
	if _, err := b.client.Add(task).Ctx(ctx).Save(); err != nil {
		if cerr := b.runs.Complete(runID, false, "failed to queue batch: "+err.Error()); cerr != nil {
			b.logger.Warn("failed to mark batch run failed", zap.String("run_id", runID), zap.Error(cerr))
		}
		return "", fmt.Errorf("queue batch import: %w", err)
	}

	b.logger.Info("batch import queued", zap.String("run_id", runID), zap.Int("total", len(candidates)))
	return runID, nil
}

// Status returns the persisted progress of a run.
func (b *BatchImports) Status(runID string) (*entities.SyncProgress, error) {
	return b.runs.Get(runID)
}
