package database

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/phonedir/internal/entities"
)

// DefaultSetting describes a seeded settings row.
type DefaultSetting struct {
	Key         string
	Value       string
	Description string
	Type        entities.SettingType
	Category    entities.SettingCategory
}

// DefaultSettings are created on startup when missing. Existing rows are
// never overwritten.
var DefaultSettings = []DefaultSetting{
	{entities.SettingKeyLDAPServer, "", "LDAP Server Address", entities.SettingTypeString, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPPort, "", "LDAP Port", entities.SettingTypeInteger, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPUseSSL, "", "Use SSL/TLS for LDAP Connection", entities.SettingTypeBoolean, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPBindDN, "", "LDAP Bind DN (Username)", entities.SettingTypeString, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPBindPassword, "", "LDAP Bind Password", entities.SettingTypeSecret, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPAllowAnonymous, "", "Allow Anonymous Binding", entities.SettingTypeBoolean, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPBaseDN, "", "LDAP Base DN for searches", entities.SettingTypeString, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPExcludeStudents, "", "Exclude students from sync", entities.SettingTypeBoolean, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPSyncEnabled, "", "Enable Automatic LDAP Sync", entities.SettingTypeBoolean, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPSyncSchedule, "", "LDAP Sync Schedule (cron)", entities.SettingTypeString, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPPageSize, "", "LDAP Page Size", entities.SettingTypeInteger, entities.SettingCategoryLDAP},
	{entities.SettingKeyLDAPMaxEntries, "", "Max LDAP Entries (0 for no limit)", entities.SettingTypeInteger, entities.SettingCategoryLDAP},

	{entities.SettingKeyCUCMHost, "", "CUCM Server Host", entities.SettingTypeString, entities.SettingCategoryCUCM},
	{entities.SettingKeyCUCMUsername, "", "CUCM AXL Username", entities.SettingTypeString, entities.SettingCategoryCUCM},
	{entities.SettingKeyCUCMPassword, "", "CUCM AXL Password", entities.SettingTypeSecret, entities.SettingCategoryCUCM},
	{entities.SettingKeyCUCMVersion, "", "CUCM Version", entities.SettingTypeString, entities.SettingCategoryCUCM},
	{entities.SettingKeyCUCMVerifyCert, "", "Verify SSL Certificate", entities.SettingTypeBoolean, entities.SettingCategoryCUCM},

	{entities.SettingKeySMTPServer, "", "SMTP Server", entities.SettingTypeString, entities.SettingCategoryEmail},
	{entities.SettingKeySMTPPort, "", "SMTP Port", entities.SettingTypeInteger, entities.SettingCategoryEmail},
	{entities.SettingKeySMTPUsername, "", "SMTP Username", entities.SettingTypeString, entities.SettingCategoryEmail},
	{entities.SettingKeySMTPPassword, "", "SMTP Password", entities.SettingTypeSecret, entities.SettingCategoryEmail},
	{entities.SettingKeySMTPUseTLS, "", "Use TLS", entities.SettingTypeBoolean, entities.SettingCategoryEmail},
	{entities.SettingKeyMailFrom, "", "From Email Address", entities.SettingTypeString, entities.SettingCategoryEmail},

	{entities.SettingKeyImportBatchSize, "100", "Import Batch Size", entities.SettingTypeInteger, entities.SettingCategoryDataManagement},
	{entities.SettingKeyCSVDelimiter, ",", "CSV Delimiter", entities.SettingTypeString, entities.SettingCategoryDataManagement},
	{entities.SettingKeyExportDateFmt, "2006-01-02 15:04", "Export Date Format", entities.SettingTypeString, entities.SettingCategoryDataManagement},
}

type Database struct {
	DB     *gorm.DB
	logger *zap.Logger
}

func NewDatabase(dbPath string, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	database := &Database{DB: db, logger: log}
	if err := database.Migrate(); err != nil {
		return nil, err
	}

	if err := database.SeedSettings(); err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	log.Info("database initialized", zap.String("path", dbPath))

	return database, nil
}

// Migrate creates or updates all tables.
func (d *Database) Migrate() error {
	err := d.DB.AutoMigrate(
		&entities.Contact{},
		&entities.History{},
		&entities.Notification{},
		&entities.Setting{},
		&entities.SyncProgress{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Reset drops every table and recreates the schema with default settings.
func (d *Database) Reset() error {
	err := d.DB.Migrator().DropTable(
		&entities.History{},
		&entities.Contact{},
		&entities.Notification{},
		&entities.Setting{},
		&entities.SyncProgress{},
	)
	if err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if err := d.Migrate(); err != nil {
		return err
	}
	return d.SeedSettings()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the underlying connection.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) SeedSettings() error {
	for _, def := range DefaultSettings {
		var existing entities.Setting
		result := d.DB.Where("key = ?", def.Key).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			setting := entities.Setting{
				Key:         def.Key,
				Value:       def.Value,
				Description: def.Description,
				Type:        def.Type,
				Category:    def.Category,
			}
			if err := d.DB.Create(&setting).Error; err != nil {
				return fmt.Errorf("failed to create setting %s: %w", def.Key, err)
			}
			d.logger.Debug("seeded setting", zap.String("key", def.Key))
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}
