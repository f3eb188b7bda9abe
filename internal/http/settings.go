package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/settingsstore"
)

var editableCategories = []entities.SettingCategory{
	entities.SettingCategoryLDAP,
	entities.SettingCategoryCUCM,
	entities.SettingCategoryEmail,
	entities.SettingCategoryDataManagement,
}

// SettingsController lists and saves the runtime settings.
type SettingsController struct {
	store     SettingsStore
	scheduler SyncScheduler
}

// NewSettingsController creates a new SettingsController. scheduler may be
// nil.
func NewSettingsController(store SettingsStore, scheduler SyncScheduler) *SettingsController {
	return &SettingsController{store: store, scheduler: scheduler}
}

func parseCategory(c *gin.Context) (entities.SettingCategory, bool) {
	category := entities.SettingCategory(c.Param("category"))
	for _, known := range editableCategories {
		if category == known {
			return category, true
		}
	}
	respondError(c, http.StatusNotFound, "unknown settings category: "+string(category))
	return "", false
}

// ListAll handles GET /api/settings
func (sc *SettingsController) ListAll(c *gin.Context) {
	values, err := sc.store.All()
	if err != nil {
		respondInternalError(c, err, "list settings")
		return
	}
	respondOK(c, gin.H{"settings": values, "categories": editableCategories})
}

// GetCategory handles GET /settings/:category
func (sc *SettingsController) GetCategory(c *gin.Context) {
	category, ok := parseCategory(c)
	if !ok {
		return
	}
	values, err := sc.store.Category(category)
	if err != nil {
		respondInternalError(c, err, "list settings")
		return
	}
	respondOK(c, gin.H{"category": category, "settings": values})
}

// SaveCategory handles POST /settings/:category/save
// Accepts a form or a flat JSON object. Boolean settings are true when
// their key is present.
func (sc *SettingsController) SaveCategory(c *gin.Context) {
	category, ok := parseCategory(c)
	if !ok {
		return
	}

	form := map[string]string{}
	if c.ContentType() == gin.MIMEJSON {
		var body map[string]any
		if !bindJSON(c, &body) {
			return
		}
		for k, v := range body {
			switch v := v.(type) {
			case string:
				form[k] = v
			case bool:
				if v {
					form[k] = "true"
				}
			case nil:
			default:
				form[k] = jsonScalar(v)
			}
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			respondBadRequest(c, "invalid form data")
			return
		}
		for k := range c.Request.PostForm {
			form[k] = c.Request.PostForm.Get(k)
		}
	}

	if err := sc.store.SaveCategory(category, form); err != nil {
		respondServiceError(c, err, "save settings")
		return
	}

	if category == entities.SettingCategoryLDAP && sc.scheduler != nil {
		if err := sc.scheduler.Reschedule(); err != nil {
			requestLogger(c).Warn("failed to reschedule LDAP sync", zap.Error(err))
			respondBadRequest(c, "settings saved but the sync schedule is invalid: "+err.Error())
			return
		}
	}
	respondOK(c, gin.H{"message": string(category) + " settings saved successfully"})
}

// SyncStatusResponse describes the scheduled directory sync.
type SyncStatusResponse struct {
	Success   bool                         `json:"success"`
	Config    settingsstore.LDAPSyncConfig `json:"config"`
	Status    settingsstore.LDAPSyncStatus `json:"status"`
	NextRun   *time.Time                   `json:"next_run,omitempty"`
	IsRunning bool                         `json:"is_running"`
}

// SyncStatus handles GET /api/sync/status
func (sc *SettingsController) SyncStatus(c *gin.Context) {
	resp := SyncStatusResponse{
		Success: true,
		Config:  sc.store.GetLDAPSyncConfig(),
		Status:  sc.store.GetLDAPSyncStatus(),
	}
	if sc.scheduler != nil {
		resp.NextRun = sc.scheduler.NextRunTime()
		resp.IsRunning = sc.scheduler.IsRunning()
	}
	c.JSON(http.StatusOK, resp)
}

func jsonScalar(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
