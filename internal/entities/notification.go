package entities

import (
	"fmt"
	"time"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:100;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Unread    bool      `gorm:"default:true;index" json:"unread"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// TimeAgo renders the age of the notification relative to now.
func (n *Notification) TimeAgo(now time.Time) string {
	delta := now.Sub(n.CreatedAt)
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return plural(int(delta/time.Minute), "minute")
	case delta < 24*time.Hour:
		return plural(int(delta/time.Hour), "hour")
	default:
		return plural(int(delta/(24*time.Hour)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// NotificationView is the JSON shape of a notification in listings.
type NotificationView struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	TimeAgo string `json:"time_ago"`
	Unread  bool   `json:"unread"`
}

func (n *Notification) View(now time.Time) NotificationView {
	return NotificationView{
		ID:      n.ID,
		Title:   n.Title,
		Message: n.Message,
		TimeAgo: n.TimeAgo(now),
		Unread:  n.Unread,
	}
}
