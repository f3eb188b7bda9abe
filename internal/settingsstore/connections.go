package settingsstore

import (
	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/mail"
)

// DirectoryConfig returns the effective LDAP connection settings.
func (s *SettingsStore) DirectoryConfig() directory.Config {
	return directory.Config{
		Server:          s.Get(entities.SettingKeyLDAPServer),
		Port:            s.Int(entities.SettingKeyLDAPPort, directory.DefaultPort),
		UseSSL:          s.Bool(entities.SettingKeyLDAPUseSSL),
		BaseDN:          s.Get(entities.SettingKeyLDAPBaseDN),
		BindDN:          s.Get(entities.SettingKeyLDAPBindDN),
		BindPassword:    s.Get(entities.SettingKeyLDAPBindPassword),
		AllowAnonymous:  s.Bool(entities.SettingKeyLDAPAllowAnonymous),
		ExcludeStudents: s.Bool(entities.SettingKeyLDAPExcludeStudents),
		PageSize:        uint32(max(s.Int(entities.SettingKeyLDAPPageSize, 100), 1)),
		MaxEntries:      s.Int(entities.SettingKeyLDAPMaxEntries, 0),
		Timeout:         s.cfg.LDAP.Timeout,
	}
}

// CUCMConfig returns the effective AXL settings.
func (s *SettingsStore) CUCMConfig() cucm.Config {
	return cucm.Config{
		Host:        s.Get(entities.SettingKeyCUCMHost),
		Username:    s.Get(entities.SettingKeyCUCMUsername),
		Password:    s.Get(entities.SettingKeyCUCMPassword),
		Version:     s.Get(entities.SettingKeyCUCMVersion),
		VerifyCert:  s.Bool(entities.SettingKeyCUCMVerifyCert),
		Timeout:     s.cfg.CUCM.Timeout,
		CacheTTL:    s.cfg.CUCM.CacheTTL,
		CacheSize:   s.cfg.CUCM.CacheSize,
		SearchLimit: s.cfg.CUCM.SearchLimit,
	}
}

// MailConfig returns the effective SMTP settings.
func (s *SettingsStore) MailConfig() mail.Config {
	return mail.Config{
		Server:   s.Get(entities.SettingKeySMTPServer),
		Port:     s.Int(entities.SettingKeySMTPPort, 587),
		Username: s.Get(entities.SettingKeySMTPUsername),
		Password: s.Get(entities.SettingKeySMTPPassword),
		UseTLS:   s.Bool(entities.SettingKeySMTPUseTLS),
		From:     s.Get(entities.SettingKeyMailFrom),
	}
}

// ImportBatchSize caps the number of candidates of one batch run.
func (s *SettingsStore) ImportBatchSize() int {
	n := s.Int(entities.SettingKeyImportBatchSize, 100)
	if limit := s.cfg.Import.MaxBatchSize; limit > 0 && (n <= 0 || n > limit) {
		return limit
	}
	if n <= 0 {
		return 100
	}
	return n
}

// CSVDelimiter returns the configured delimiter, ',' when unset.
func (s *SettingsStore) CSVDelimiter() rune {
	for _, r := range s.Get(entities.SettingKeyCSVDelimiter) {
		return r
	}
	return ','
}

// ExportDateFormat is the Go layout used for timestamps in exports.
func (s *SettingsStore) ExportDateFormat() string {
	if f := s.Get(entities.SettingKeyExportDateFmt); f != "" {
		return f
	}
	return "2006-01-02 15:04"
}
