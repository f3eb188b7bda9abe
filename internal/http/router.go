package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before the session so that the session context is
	// preserved on the replaced request.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.APIToken))
	}
	var sessions PhoneImportSession
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
		sessions = cfg.SessionManager
	}

	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/api/csrf-token", health.CSRFToken)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if cfg.Imports != nil {
		imports := NewImportController(cfg.Imports, cfg.Batches)
		router.POST("/import-contact", imports.ImportContact)
		router.POST("/resolve-conflict/:id", imports.ResolveConflict)
		router.POST("/ldap-search", imports.Search)
		router.POST("/import-batch", imports.EnqueueBatch)
		router.GET("/import-batch/:run/status", imports.BatchStatus)
	}

	if cfg.Sync != nil {
		sync := NewSyncController(cfg.Sync)
		router.POST("/sync", sync.Sync)
	}

	if cfg.Contacts != nil {
		var format CSVFormat
		if cfg.Settings != nil {
			format = cfg.Settings
		}
		contacts := NewContactsController(cfg.Contacts, format, sessions, cfg.Debug)
		router.GET("/api/contacts", contacts.ListContacts)
		router.GET("/api/contacts/stats", contacts.GetStats)
		router.GET("/api/contacts/filters", contacts.GetFilterOptions)
		router.GET("/conflicts", contacts.ListConflicts)
		router.POST("/contact/create", contacts.CreateContact)
		router.GET("/contact/:id", contacts.GetContact)
		router.POST("/contact/:id/update", contacts.UpdateContact)
		router.POST("/contact/:id/delete", contacts.DeleteContact)
		router.POST("/contact/:id/restore", contacts.RestoreContact)
		router.POST("/contact/:id/permanent-delete", contacts.PermanentDelete)
		router.GET("/contact/:id/history", contacts.GetHistory)
		router.POST("/contact/:id/send-pin", contacts.SendPIN)
		router.POST("/api/contact/:id/fetch-auth-code", contacts.FetchAuthCode)
		router.GET("/export-csv", contacts.ExportCSV)
		router.POST("/preview-import", contacts.PreviewImport)
		router.POST("/confirm-import", contacts.ConfirmImport)
		router.POST("/debug/drop-all-contacts", contacts.DropAll)
	}

	if cfg.Notifications != nil {
		notes := NewNotificationsController(cfg.Notifications)
		router.GET("/notifications", notes.List)
		router.POST("/notifications/mark-all-read", notes.MarkAllRead)
		router.POST("/notifications/clear-all", notes.ClearAll)
		router.POST("/notifications/create-test", notes.CreateTest)
	}

	if cfg.Settings != nil {
		settings := NewSettingsController(cfg.Settings, cfg.Scheduler)
		router.GET("/api/settings", settings.ListAll)
		router.GET("/api/sync/status", settings.SyncStatus)
		router.GET("/settings/:category", settings.GetCategory)
		router.POST("/settings/:category/save", settings.SaveCategory)

		connections := NewConnectionsController(cfg.Settings, cfg.TestLDAP, cfg.Phones)
		if cfg.TestLDAP != nil {
			router.POST("/test-ldap", connections.TestLDAP)
			router.POST("/test-ldap-connection", connections.TestLDAPConnection)
		}
		if cfg.Phones != nil {
			router.POST("/test-cucm", connections.TestCUCM)
			router.GET("/api/phones/search", connections.SearchPhones)
			router.GET("/api/phones/:mac/details", connections.GetPhoneDetails)
		}
	}

	return router
}
