package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

// DefaultNotificationRetentionDays applies when a task carries no retention.
const DefaultNotificationRetentionDays = 30

// NotificationCleaner deletes notifications older than a retention period.
type NotificationCleaner interface {
	Cleanup(retention time.Duration) (int64, error)
}

// CleanupNotificationsTask removes notifications older than RetentionDays.
type CleanupNotificationsTask struct {
	RetentionDays int `json:"retention_days"`
}

// Config returns the queue configuration for notification cleanup tasks.
func (t CleanupNotificationsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_notifications",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CleanupNotificationsProcessor creates a processor function for CleanupNotificationsTask.
func CleanupNotificationsProcessor(cleaner NotificationCleaner, logger *zap.Logger) backlite.QueueProcessor[CleanupNotificationsTask] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, task CleanupNotificationsTask) error {
		if cleaner == nil {
			return fmt.Errorf("notification cleaner not configured")
		}

		retentionDays := task.RetentionDays
		if retentionDays <= 0 {
			retentionDays = DefaultNotificationRetentionDays
		}
		retention := time.Duration(retentionDays) * 24 * time.Hour

		deleted, err := cleaner.Cleanup(retention)
		if err != nil {
			return fmt.Errorf("cleanup notifications: %w", err)
		}

		logger.Info("old notifications removed", zap.Int64("deleted", deleted), zap.Int("retention_days", retentionDays))
		return nil
	}
}

// NewCleanupNotificationsQueue creates a backlite queue for notification cleanup tasks.
func NewCleanupNotificationsQueue(cleaner NotificationCleaner, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupNotificationsProcessor(cleaner, logger))
}
