package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		LDAP
		CUCM
		SMTP
		Import
		Sync
		Tasks
		Auth
		UI
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
		Debug                    bool // Enables destructive maintenance endpoints
	}
	Database struct {
		Path string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // "json" or "console"
	}
	LDAP struct {
		Server          string
		Port            int
		UseSSL          bool
		BaseDN          string
		BindDN          string
		BindPassword    string
		AllowAnonymous  bool
		ExcludeStudents bool
		PageSize        int
		MaxEntries      int // 0 for no limit
		Timeout         time.Duration
	}
	CUCM struct {
		Host        string
		Username    string
		Password    string
		Version     string
		VerifyCert  bool
		CacheTTL    time.Duration
		CacheSize   int
		SearchLimit int
		Timeout     time.Duration
	}
	SMTP struct {
		Server   string
		Port     int
		Username string
		Password string
		UseTLS   bool
		From     string
	}
	Import struct {
		RequestTimeout time.Duration // Per-item timeout inside a batch run
		MaxBatchSize   int
		ServerURL      string // Base URL used by the CLI client
	}
	Sync struct {
		Enabled                   bool
		Schedule                  string // Cron format: "0 3 * * *" = daily at 03:00
		MaxRetries                int
		NotificationRetentionDays int
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool   // Set to false for local dev without HTTPS
		APIToken        string // Bearer token for the CLI; empty disables API access
	}
	UI struct {
		StaticPath string
	}
)

// NewConfig loads an optional .env file and builds the configuration from
// environment variables on top of the defaults below.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("debug", false)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("static_path", "./static")

	// Directory defaults
	v.SetDefault("ldap_server", "")
	v.SetDefault("ldap_port", 389)
	v.SetDefault("ldap_use_ssl", false)
	v.SetDefault("ldap_base_dn", "")
	v.SetDefault("ldap_bind_dn", "")
	v.SetDefault("ldap_bind_password", "")
	v.SetDefault("ldap_allow_anonymous", true)
	v.SetDefault("ldap_exclude_students", false)
	v.SetDefault("ldap_page_size", 100)
	v.SetDefault("ldap_max_entries", 1000)
	v.SetDefault("ldap_timeout", "10s")

	// CUCM AXL defaults
	v.SetDefault("cucm_host", "")
	v.SetDefault("cucm_username", "")
	v.SetDefault("cucm_password", "")
	v.SetDefault("cucm_version", "14.0")
	v.SetDefault("cucm_verify_cert", false)
	v.SetDefault("cucm_cache_ttl", "1h")
	v.SetDefault("cucm_cache_size", 512)
	v.SetDefault("cucm_search_limit", 100)
	v.SetDefault("cucm_timeout", "15s")

	// Mail defaults
	v.SetDefault("smtp_server", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("smtp_use_tls", true)
	v.SetDefault("mail_from", "")

	// Import defaults
	v.SetDefault("import_request_timeout", "30s")
	v.SetDefault("import_max_batch_size", 1000)
	v.SetDefault("import_server_url", "http://localhost:8188")

	// Scheduled sync defaults
	v.SetDefault("ldap_sync_enabled", false)
	v.SetDefault("ldap_sync_schedule", DefaultLDAPSyncSchedule)
	v.SetDefault("ldap_sync_max_retries", 3)
	v.SetDefault("notification_retention_days", 30)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_timeout", "30m")
	v.SetDefault("task_release_after", "45m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Session defaults
	v.SetDefault("auth_session_secret", "") // Persisted in the settings table if empty
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_api_token", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			Debug:                    v.GetBool("DEBUG"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		LDAP: LDAP{
			Server:          v.GetString("LDAP_SERVER"),
			Port:            v.GetInt("LDAP_PORT"),
			UseSSL:          v.GetBool("LDAP_USE_SSL"),
			BaseDN:          v.GetString("LDAP_BASE_DN"),
			BindDN:          v.GetString("LDAP_BIND_DN"),
			BindPassword:    v.GetString("LDAP_BIND_PASSWORD"),
			AllowAnonymous:  v.GetBool("LDAP_ALLOW_ANONYMOUS"),
			ExcludeStudents: v.GetBool("LDAP_EXCLUDE_STUDENTS"),
			PageSize:        v.GetInt("LDAP_PAGE_SIZE"),
			MaxEntries:      v.GetInt("LDAP_MAX_ENTRIES"),
			Timeout:         v.GetDuration("LDAP_TIMEOUT"),
		},
		CUCM: CUCM{
			Host:        v.GetString("CUCM_HOST"),
			Username:    v.GetString("CUCM_USERNAME"),
			Password:    v.GetString("CUCM_PASSWORD"),
			Version:     v.GetString("CUCM_VERSION"),
			VerifyCert:  v.GetBool("CUCM_VERIFY_CERT"),
			CacheTTL:    v.GetDuration("CUCM_CACHE_TTL"),
			CacheSize:   v.GetInt("CUCM_CACHE_SIZE"),
			SearchLimit: v.GetInt("CUCM_SEARCH_LIMIT"),
			Timeout:     v.GetDuration("CUCM_TIMEOUT"),
		},
		SMTP: SMTP{
			Server:   v.GetString("SMTP_SERVER"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			UseTLS:   v.GetBool("SMTP_USE_TLS"),
			From:     v.GetString("MAIL_FROM"),
		},
		Import: Import{
			RequestTimeout: v.GetDuration("IMPORT_REQUEST_TIMEOUT"),
			MaxBatchSize:   v.GetInt("IMPORT_MAX_BATCH_SIZE"),
			ServerURL:      v.GetString("IMPORT_SERVER_URL"),
		},
		Sync: Sync{
			Enabled:                   v.GetBool("LDAP_SYNC_ENABLED"),
			Schedule:                  v.GetString("LDAP_SYNC_SCHEDULE"),
			MaxRetries:                v.GetInt("LDAP_SYNC_MAX_RETRIES"),
			NotificationRetentionDays: v.GetInt("NOTIFICATION_RETENTION_DAYS"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			APIToken:        v.GetString("AUTH_API_TOKEN"),
		},
		UI: UI{
			StaticPath: v.GetString("STATIC_PATH"),
		},
	}
}
