// Package notifications records operator-facing events such as finished
// syncs and batch imports.
package notifications

import (
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/database/notifications"
	"github.com/mrlokans/phonedir/internal/entities"
)

const (
	DefaultListLimit = 20

	DefaultTestTitle   = "Test Notification"
	DefaultTestMessage = "Test notification message"
)

// Service provides high-level notification functionality.
type Service struct {
	repo   *notifications.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new notification service.
func NewService(repo *notifications.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Notify stores an unread notification.
func (s *Service) Notify(title, message string) error {
	n := &entities.Notification{
		Title:     truncate(title, 100),
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(n); err != nil {
		s.logger.Error("failed to store notification", zap.String("title", title), zap.Error(err))
		return err
	}
	s.logger.Debug("notification stored", zap.Uint("id", n.ID), zap.String("title", title))
	return nil
}

// NotifyTest stores a notification with the given or default texts.
func (s *Service) NotifyTest(title, message string) error {
	if title == "" {
		title = DefaultTestTitle
	}
	if message == "" {
		message = DefaultTestMessage
	}
	return s.Notify(title, message)
}

// Listing is the latest notifications with the number of unread ones.
type Listing struct {
	Notifications []entities.NotificationView `json:"notifications"`
	UnreadCount   int64                       `json:"unread_count"`
}

// Latest returns up to limit notifications, newest first. limit <= 0 uses
// DefaultListLimit.
func (s *Service) Latest(limit int) (Listing, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.repo.Latest(limit)
	if err != nil {
		return Listing{}, err
	}
	unread, err := s.repo.UnreadCount()
	if err != nil {
		return Listing{}, err
	}

	now := s.now()
	views := make([]entities.NotificationView, 0, len(rows))
	for i := range rows {
		views = append(views, rows[i].View(now))
	}
	return Listing{Notifications: views, UnreadCount: unread}, nil
}

func (s *Service) MarkAllRead() (int64, error) {
	return s.repo.MarkAllRead()
}

func (s *Service) Clear() (int64, error) {
	return s.repo.DeleteAll()
}

// Cleanup removes notifications older than retention.
func (s *Service) Cleanup(retention time.Duration) (int64, error) {
	n, err := s.repo.DeleteOlderThan(retention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("old notifications removed", zap.Int64("count", n), zap.Duration("retention", retention))
	}
	return n, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
