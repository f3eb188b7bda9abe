package http

import (
	"github.com/gin-gonic/gin"
)

type NotificationsController struct {
	store NotificationStore
}

func NewNotificationsController(store NotificationStore) *NotificationsController {
	return &NotificationsController{store: store}
}

// List handles GET /notifications
func (nc *NotificationsController) List(c *gin.Context) {
	listing, err := nc.store.Latest(0)
	if err != nil {
		respondInternalError(c, err, "list notifications")
		return
	}
	respondOK(c, gin.H{
		"notifications": listing.Notifications,
		"unread_count":  listing.UnreadCount,
	})
}

// MarkAllRead handles POST /notifications/mark-all-read
func (nc *NotificationsController) MarkAllRead(c *gin.Context) {
	n, err := nc.store.MarkAllRead()
	if err != nil {
		respondInternalError(c, err, "mark notifications read")
		return
	}
	respondOK(c, gin.H{"updated": n})
}

// ClearAll handles POST /notifications/clear-all
func (nc *NotificationsController) ClearAll(c *gin.Context) {
	n, err := nc.store.Clear()
	if err != nil {
		respondInternalError(c, err, "clear notifications")
		return
	}
	respondOK(c, gin.H{"deleted": n})
}

type testNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// CreateTest handles POST /notifications/create-test
// The body is optional; missing texts fall back to defaults.
func (nc *NotificationsController) CreateTest(c *gin.Context) {
	var req testNotificationRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	if err := nc.store.NotifyTest(req.Title, req.Message); err != nil {
		respondInternalError(c, err, "create test notification")
		return
	}
	respondOK(c, nil)
}
