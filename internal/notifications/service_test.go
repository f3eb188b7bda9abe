package notifications

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	notificationRepo "github.com/mrlokans/phonedir/internal/database/notifications"
	"github.com/mrlokans/phonedir/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Notification{})
	require.NoError(t, err)

	svc := NewService(notificationRepo.NewRepository(db), nil)
	return svc, db
}

func TestService_Notify(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, svc.Notify("LDAP Sync Completed", "Created: 2, Updated: 5"))

	var saved entities.Notification
	require.NoError(t, db.First(&saved).Error)
	assert.Equal(t, "LDAP Sync Completed", saved.Title)
	assert.True(t, saved.Unread)
}

func TestService_Notify_TruncatesTitle(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, svc.Notify(strings.Repeat("x", 150), "m"))

	var saved entities.Notification
	require.NoError(t, db.First(&saved).Error)
	assert.Len(t, saved.Title, 100)
	assert.True(t, strings.HasSuffix(saved.Title, "..."))
}

func TestService_Latest(t *testing.T) {
	svc, _ := setupTestService(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return base.Add(-2 * time.Hour) }
	require.NoError(t, svc.Notify("older", "m"))
	svc.now = func() time.Time { return base.Add(-5 * time.Minute) }
	require.NoError(t, svc.Notify("newer", "m"))

	svc.now = func() time.Time { return base }
	listing, err := svc.Latest(0)
	require.NoError(t, err)
	require.Len(t, listing.Notifications, 2)
	assert.Equal(t, "newer", listing.Notifications[0].Title)
	assert.Equal(t, "5 minutes ago", listing.Notifications[0].TimeAgo)
	assert.Equal(t, "2 hours ago", listing.Notifications[1].TimeAgo)
	assert.EqualValues(t, 2, listing.UnreadCount)

	n, err := svc.MarkAllRead()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	listing, err = svc.Latest(1)
	require.NoError(t, err)
	assert.Len(t, listing.Notifications, 1)
	assert.False(t, listing.Notifications[0].Unread)
	assert.Zero(t, listing.UnreadCount)
}

func TestService_NotifyTest(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, svc.NotifyTest("", ""))
	require.NoError(t, svc.NotifyTest("Custom", "Body"))

	var rows []entities.Notification
	require.NoError(t, db.Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, DefaultTestTitle, rows[0].Title)
	assert.Equal(t, DefaultTestMessage, rows[0].Message)
	assert.Equal(t, "Custom", rows[1].Title)
}

func TestService_ClearAndCleanup(t *testing.T) {
	svc, db := setupTestService(t)

	svc.now = func() time.Time { return time.Now().Add(-40 * 24 * time.Hour) }
	require.NoError(t, svc.Notify("old", "m"))
	svc.now = time.Now
	require.NoError(t, svc.Notify("fresh", "m"))

	removed, err := svc.Cleanup(30 * 24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	removed, err = svc.Clear()
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	var count int64
	db.Model(&entities.Notification{}).Count(&count)
	assert.Zero(t, count)
}
