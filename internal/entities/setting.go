package entities

import (
	"time"
)

type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeInteger SettingType = "integer"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeSecret  SettingType = "secret"
)

type SettingCategory string

const (
	SettingCategoryLDAP           SettingCategory = "ldap"
	SettingCategoryCUCM           SettingCategory = "cucm"
	SettingCategoryEmail          SettingCategory = "email"
	SettingCategoryDataManagement SettingCategory = "data_management"
	SettingCategoryInternal       SettingCategory = "internal"
)

type Setting struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Key         string          `gorm:"uniqueIndex;size:64" json:"key"`
	Value       string          `gorm:"type:text" json:"value"`
	Description string          `gorm:"size:256" json:"description"`
	Type        SettingType     `gorm:"size:32" json:"type"`
	Category    SettingCategory `gorm:"size:32;index" json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	// Directory connection
	SettingKeyLDAPServer          = "LDAP_SERVER"
	SettingKeyLDAPPort            = "LDAP_PORT"
	SettingKeyLDAPUseSSL          = "LDAP_USE_SSL"
	SettingKeyLDAPBindDN          = "LDAP_BIND_DN"
	SettingKeyLDAPBindPassword    = "LDAP_BIND_PASSWORD"
	SettingKeyLDAPAllowAnonymous  = "LDAP_ALLOW_ANONYMOUS"
	SettingKeyLDAPBaseDN          = "LDAP_BASE_DN"
	SettingKeyLDAPExcludeStudents = "LDAP_EXCLUDE_STUDENTS"
	SettingKeyLDAPSyncEnabled     = "LDAP_SYNC_ENABLED"
	SettingKeyLDAPSyncSchedule    = "LDAP_SYNC_SCHEDULE"
	SettingKeyLDAPPageSize        = "LDAP_PAGE_SIZE"
	SettingKeyLDAPMaxEntries      = "LDAP_MAX_ENTRIES"

	// CUCM AXL
	SettingKeyCUCMHost       = "CUCM_HOST"
	SettingKeyCUCMUsername   = "CUCM_USERNAME"
	SettingKeyCUCMPassword   = "CUCM_PASSWORD"
	SettingKeyCUCMVersion    = "CUCM_VERSION"
	SettingKeyCUCMVerifyCert = "CUCM_VERIFY_CERT"

	// Mail
	SettingKeySMTPServer   = "SMTP_SERVER"
	SettingKeySMTPPort     = "SMTP_PORT"
	SettingKeySMTPUsername = "SMTP_USERNAME"
	SettingKeySMTPPassword = "SMTP_PASSWORD"
	SettingKeySMTPUseTLS   = "SMTP_USE_TLS"
	SettingKeyMailFrom     = "MAIL_FROM"

	// Data management
	SettingKeyImportBatchSize = "IMPORT_BATCH_SIZE"
	SettingKeyCSVDelimiter    = "CSV_DELIMITER"
	SettingKeyExportDateFmt   = "EXPORT_DATE_FORMAT"

	// Internal
	SettingKeyAppSecret           = "APP_SECRET"
	SettingKeyLDAPSyncLastAt      = "LDAP_SYNC_LAST_AT"
	SettingKeyLDAPSyncLastStatus  = "LDAP_SYNC_LAST_STATUS"
	SettingKeyLDAPSyncLastMessage = "LDAP_SYNC_LAST_MESSAGE"
)
