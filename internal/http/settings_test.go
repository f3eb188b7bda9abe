package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/database/settings"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/settingsstore"
)

type fakeScheduler struct {
	next        *time.Time
	running     bool
	rescheduled int
	err         error
}

func (s *fakeScheduler) NextRunTime() *time.Time { return s.next }
func (s *fakeScheduler) IsRunning() bool         { return s.running }
func (s *fakeScheduler) Reschedule() error {
	s.rescheduled++
	return s.err
}

func newTestSettingsStore(t *testing.T) *settingsstore.SettingsStore {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "settings.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return settingsstore.New(settings.NewRepository(db.DB), &config.Config{})
}

func settingsRouter(store SettingsStore, scheduler SyncScheduler) *gin.Engine {
	sc := NewSettingsController(store, scheduler)
	r := gin.New()
	r.GET("/api/settings", sc.ListAll)
	r.GET("/api/sync/status", sc.SyncStatus)
	r.GET("/settings/:category", sc.GetCategory)
	r.POST("/settings/:category/save", sc.SaveCategory)
	return r
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func TestSettings_GetCategory(t *testing.T) {
	r := settingsRouter(newTestSettingsStore(t), nil)

	w := doJSON(r, http.MethodGet, "/settings/data_management", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "data_management", body["category"])
	assert.Len(t, body["settings"], 3)
}

func TestSettings_UnknownCategory(t *testing.T) {
	r := settingsRouter(newTestSettingsStore(t), nil)

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/settings/internal", "").Code)
	assert.Equal(t, http.StatusNotFound, postForm(r, "/settings/books/save", url.Values{}).Code)
}

func TestSettings_ListAllHidesSecrets(t *testing.T) {
	store := newTestSettingsStore(t)
	require.NoError(t, store.Set(entities.SettingKeyLDAPBindPassword, "hunter2"))
	r := settingsRouter(store, nil)

	w := doJSON(r, http.MethodGet, "/api/settings", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), entities.SettingKeyAppSecret)
}

func TestSettings_SaveFormReschedulesLDAP(t *testing.T) {
	store := newTestSettingsStore(t)
	scheduler := &fakeScheduler{}
	r := settingsRouter(store, scheduler)

	w := postForm(r, "/settings/ldap/save", url.Values{
		entities.SettingKeyLDAPServer:      {"ldap.example.org"},
		entities.SettingKeyLDAPPort:        {"389"},
		entities.SettingKeyLDAPSyncEnabled: {"on"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ldap.example.org", store.Get(entities.SettingKeyLDAPServer))
	assert.True(t, store.Bool(entities.SettingKeyLDAPSyncEnabled))
	assert.False(t, store.Bool(entities.SettingKeyLDAPUseSSL), "absent checkbox is false")
	assert.Equal(t, 1, scheduler.rescheduled)
}

func TestSettings_SaveJSON(t *testing.T) {
	store := newTestSettingsStore(t)
	scheduler := &fakeScheduler{}
	r := settingsRouter(store, scheduler)

	w := doJSON(r, http.MethodPost, "/settings/data_management/save", `{"IMPORT_BATCH_SIZE":250,"CSV_DELIMITER":";"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "250", store.Get(entities.SettingKeyImportBatchSize))
	assert.Equal(t, ";", store.Get(entities.SettingKeyCSVDelimiter))
	assert.Zero(t, scheduler.rescheduled)
}

func TestSettings_SaveInvalidInteger(t *testing.T) {
	r := settingsRouter(newTestSettingsStore(t), nil)

	w := postForm(r, "/settings/email/save", url.Values{entities.SettingKeySMTPPort: {"twenty-five"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSettings_SaveWithInvalidSchedule(t *testing.T) {
	scheduler := &fakeScheduler{err: errors.New("invalid cron schedule")}
	r := settingsRouter(newTestSettingsStore(t), scheduler)

	w := postForm(r, "/settings/ldap/save", url.Values{entities.SettingKeyLDAPSyncSchedule: {"every day"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "sync schedule is invalid")
}

func TestSettings_SyncStatus(t *testing.T) {
	next := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	store := newTestSettingsStore(t)
	require.NoError(t, store.SetLDAPSyncStatus("success", "Sync completed: 3 contacts added, 0 updated"))
	r := settingsRouter(store, &fakeScheduler{next: &next, running: true})

	w := doJSON(r, http.MethodGet, "/api/sync/status", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["is_running"])
	assert.Equal(t, "2026-01-02T03:00:00Z", body["next_run"])
	status := body["status"].(map[string]any)
	assert.Equal(t, "success", status["status"])
}
