// Package sync provides database operations for run progress tracking.
//
// Batch imports and scheduled directory syncs record their progress here,
// one row per run, so that status can be polled while the run is executing
// in a worker.
//
// # Interface Implementation
//
//	var _ importer.ProgressReporter = (*BatchReporter)(nil)
//
// # Usage
//
//	repo := sync.NewRepository(db)
//	err := repo.Enqueue(runID, entities.SyncTypeImportBatch, len(candidates))
package sync

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/phonedir/internal/entities"
)

// StaleAfter is how long a running record may go without updates before it
// is considered interrupted.
const StaleAfter = 10 * time.Minute

var ErrNotFound = errors.New("run not found")

// Repository handles all sync progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Enqueue records a run that has been accepted but not started yet.
func (r *Repository) Enqueue(runID string, syncType entities.SyncType, totalItems int) error {
	now := time.Now()
	return r.db.Create(&entities.SyncProgress{
		RunID:      runID,
		SyncType:   syncType,
		Status:     entities.SyncStatusQueued,
		TotalItems: totalItems,
		StartedAt:  now,
		UpdatedAt:  now,
	}).Error
}

// Get retrieves a run by its ID.
func (r *Repository) Get(runID string) (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	err := r.db.Where("run_id = ?", runID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// Latest returns the most recent run of a type.
func (r *Repository) Latest(syncType entities.SyncType) (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	err := r.db.Where("sync_type = ?", syncType).Order("started_at DESC, id DESC").First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// Start marks a run as running, creating it when it was never enqueued.
func (r *Repository) Start(runID string, syncType entities.SyncType, totalItems int) error {
	var progress entities.SyncProgress
	result := r.db.Where("run_id = ?", runID).First(&progress)

	now := time.Now()
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		progress = entities.SyncProgress{
			RunID:      runID,
			SyncType:   syncType,
			Status:     entities.SyncStatusRunning,
			TotalItems: totalItems,
			StartedAt:  now,
			UpdatedAt:  now,
		}
		return r.db.Create(&progress).Error
	} else if result.Error != nil {
		return result.Error
	}

	progress.Status = entities.SyncStatusRunning
	progress.TotalItems = totalItems
	progress.Processed = 0
	progress.Succeeded = 0
	progress.Conflicts = 0
	progress.Failed = 0
	progress.CurrentItem = ""
	progress.Error = ""
	progress.StartedAt = now
	progress.UpdatedAt = now
	progress.CompletedAt = nil

	return r.db.Save(&progress).Error
}

// SetTotal records the number of items once it is known.
func (r *Repository) SetTotal(runID string, totalItems int) error {
	return r.db.Model(&entities.SyncProgress{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{"total_items": totalItems, "updated_at": time.Now()}).Error
}

// UpdateProgress stores the counters of an ongoing run.
func (r *Repository) UpdateProgress(runID string, processed, succeeded, conflicts, failed int, currentItem string) error {
	return r.db.Model(&entities.SyncProgress{}).
		Where("run_id = ?", runID).
		Updates(map[string]any{
			"processed":    processed,
			"succeeded":    succeeded,
			"conflicts":    conflicts,
			"failed":       failed,
			"current_item": currentItem,
			"updated_at":   time.Now(),
		}).Error
}

// Complete marks a run as completed or failed.
func (r *Repository) Complete(runID string, succeeded bool, errorMsg string) error {
	now := time.Now()
	status := entities.SyncStatusCompleted
	if !succeeded {
		status = entities.SyncStatusFailed
	}

	updates := map[string]any{
		"status":       status,
		"current_item": "",
		"updated_at":   now,
		"completed_at": now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.db.Model(&entities.SyncProgress{}).
		Where("run_id = ?", runID).
		Updates(updates).Error
}

// IsRunning reports whether a run of the given type is in progress.
// Runs not updated within StaleAfter are marked failed and ignored.
func (r *Repository) IsRunning(syncType entities.SyncType) (bool, error) {
	var running []entities.SyncProgress
	err := r.db.Where("sync_type = ? AND status = ?", syncType, entities.SyncStatusRunning).Find(&running).Error
	if err != nil {
		return false, err
	}

	staleThreshold := time.Now().Add(-StaleAfter)
	active := false
	for _, progress := range running {
		if progress.UpdatedAt.Before(staleThreshold) {
			_ = r.Complete(progress.RunID, false, "run was interrupted")
			continue
		}
		active = true
	}
	return active, nil
}
