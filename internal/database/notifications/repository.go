// Package notifications provides database operations for operator
// notifications.
package notifications

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/phonedir/internal/entities"
)

// Repository handles notification database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new notifications repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(n *entities.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.Unread = true
	return r.db.Create(n).Error
}

// Latest returns up to limit notifications, newest first.
func (r *Repository) Latest(limit int) ([]entities.Notification, error) {
	var notifications []entities.Notification
	err := r.db.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

func (r *Repository) UnreadCount() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Notification{}).Where("unread = ?", true).Count(&count).Error
	return count, err
}

func (r *Repository) MarkAllRead() (int64, error) {
	result := r.db.Model(&entities.Notification{}).Where("unread = ?", true).Update("unread", false)
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteAll() (int64, error) {
	result := r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Notification{})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan removes notifications created before now-retention.
func (r *Repository) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := r.db.Where("created_at < ?", cutoff).Delete(&entities.Notification{})
	return result.RowsAffected, result.Error
}
