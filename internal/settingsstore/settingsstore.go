package settingsstore

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/crypto"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/database/settings"
	"github.com/mrlokans/phonedir/internal/entities"
)

type Source string

const (
	SourceDatabase    Source = "database"
	SourceEnvironment Source = "environment"
	SourceDefault     Source = "default"
)

// Value is an effective setting together with where it came from.
type Value struct {
	Key         string                   `json:"key"`
	Value       string                   `json:"value"`
	Source      Source                   `json:"source"`
	Description string                   `json:"description"`
	Type        entities.SettingType     `json:"type"`
	Category    entities.SettingCategory `json:"category"`
	IsSet       bool                     `json:"is_set"` // for secrets, whose value is never exposed
}

// Priority: database > environment > default
type SettingsStore struct {
	repo      *settings.Repository
	cfg       config.Config
	fallbacks map[string]string
	enc       *crypto.Encryptor
	logger    *zap.Logger
}

type Option func(*SettingsStore)

// WithEncryptor enables encryption of secret settings at rest.
func WithEncryptor(enc *crypto.Encryptor) Option {
	return func(s *SettingsStore) { s.enc = enc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *SettingsStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a store over repo. Values from cfg are used when the
// database holds no value for a key.
func New(repo *settings.Repository, cfg *config.Config, opts ...Option) *SettingsStore {
	s := &SettingsStore{
		repo:      repo,
		fallbacks: fallbacksFromConfig(cfg),
		logger:    zap.NewNop(),
	}
	if cfg != nil {
		s.cfg = *cfg
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func fallbacksFromConfig(cfg *config.Config) map[string]string {
	if cfg == nil {
		return map[string]string{}
	}
	itoa := strconv.Itoa
	btoa := strconv.FormatBool
	return map[string]string{
		entities.SettingKeyLDAPServer:          cfg.LDAP.Server,
		entities.SettingKeyLDAPPort:            itoa(cfg.LDAP.Port),
		entities.SettingKeyLDAPUseSSL:          btoa(cfg.LDAP.UseSSL),
		entities.SettingKeyLDAPBindDN:          cfg.LDAP.BindDN,
		entities.SettingKeyLDAPBindPassword:    cfg.LDAP.BindPassword,
		entities.SettingKeyLDAPAllowAnonymous:  btoa(cfg.LDAP.AllowAnonymous),
		entities.SettingKeyLDAPBaseDN:          cfg.LDAP.BaseDN,
		entities.SettingKeyLDAPExcludeStudents: btoa(cfg.LDAP.ExcludeStudents),
		entities.SettingKeyLDAPSyncEnabled:     btoa(cfg.Sync.Enabled),
		entities.SettingKeyLDAPSyncSchedule:    cfg.Sync.Schedule,
		entities.SettingKeyLDAPPageSize:        itoa(cfg.LDAP.PageSize),
		entities.SettingKeyLDAPMaxEntries:      itoa(cfg.LDAP.MaxEntries),

		entities.SettingKeyCUCMHost:       cfg.CUCM.Host,
		entities.SettingKeyCUCMUsername:   cfg.CUCM.Username,
		entities.SettingKeyCUCMPassword:   cfg.CUCM.Password,
		entities.SettingKeyCUCMVersion:    cfg.CUCM.Version,
		entities.SettingKeyCUCMVerifyCert: btoa(cfg.CUCM.VerifyCert),

		entities.SettingKeySMTPServer:   cfg.SMTP.Server,
		entities.SettingKeySMTPPort:     itoa(cfg.SMTP.Port),
		entities.SettingKeySMTPUsername: cfg.SMTP.Username,
		entities.SettingKeySMTPPassword: cfg.SMTP.Password,
		entities.SettingKeySMTPUseTLS:   btoa(cfg.SMTP.UseTLS),
		entities.SettingKeyMailFrom:     cfg.SMTP.From,
	}
}

// Get returns the effective value for key, decrypting secrets.
func (s *SettingsStore) Get(key string) string {
	v, _ := s.resolve(key)
	return v
}

// Source returns where the effective value for key comes from.
func (s *SettingsStore) Source(key string) Source {
	_, src := s.resolve(key)
	return src
}

func (s *SettingsStore) resolve(key string) (string, Source) {
	setting, err := s.repo.GetSetting(key)
	if err == nil && setting.Value != "" {
		return s.decrypt(setting), SourceDatabase
	}

	fallback := s.fallbacks[key]
	if _, ok := os.LookupEnv(key); ok && fallback != "" {
		return fallback, SourceEnvironment
	}
	if fallback != "" {
		return fallback, SourceDefault
	}
	if def, ok := defaultFor(key); ok {
		return def.Value, SourceDefault
	}
	return "", SourceDefault
}

func (s *SettingsStore) decrypt(setting *entities.Setting) string {
	if !crypto.IsEncrypted(setting.Value) {
		return setting.Value
	}
	if s.enc == nil {
		s.logger.Warn("encrypted setting without encryptor", zap.String("key", setting.Key))
		return ""
	}
	plain, err := s.enc.Decrypt(setting.Value)
	if err != nil {
		s.logger.Error("failed to decrypt setting", zap.String("key", setting.Key), zap.Error(err))
		return ""
	}
	return plain
}

// Bool parses the effective value as a boolean. Unparsable values are false.
func (s *SettingsStore) Bool(key string) bool {
	return parseBool(s.Get(key))
}

// Int parses the effective value, returning def when it is not a number.
func (s *SettingsStore) Int(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s.Get(key)))
	if err != nil {
		return def
	}
	return n
}

// Set stores value for key. Secret settings are encrypted when an
// encryptor is configured.
func (s *SettingsStore) Set(key, value string) error {
	if s.isSecret(key) && s.enc != nil {
		enc, err := s.enc.Encrypt(value)
		if err != nil {
			return err
		}
		value = enc
	}
	return s.repo.SetSetting(key, value)
}

// Clear removes the database override for key, reverting to the
// environment or default.
func (s *SettingsStore) Clear(key string) error {
	if _, ok := defaultFor(key); ok {
		return s.repo.SetSetting(key, "")
	}
	err := s.repo.DeleteSetting(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (s *SettingsStore) isSecret(key string) bool {
	if setting, err := s.repo.GetSetting(key); err == nil {
		return setting.Type == entities.SettingTypeSecret
	}
	def, ok := defaultFor(key)
	return ok && def.Type == entities.SettingTypeSecret
}

// Category returns the effective values of every setting in category.
// Secret values are blanked; IsSet tells whether one is configured.
func (s *SettingsStore) Category(category entities.SettingCategory) ([]Value, error) {
	rows, err := s.repo.ListByCategory(category)
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, len(rows))
	for _, row := range rows {
		values = append(values, s.view(row))
	}
	return values, nil
}

// All returns the effective values of every user-facing setting.
func (s *SettingsStore) All() ([]Value, error) {
	rows, err := s.repo.ListAll()
	if err != nil {
		return nil, err
	}
	values := make([]Value, 0, len(rows))
	for _, row := range rows {
		values = append(values, s.view(row))
	}
	return values, nil
}

func (s *SettingsStore) view(row entities.Setting) Value {
	value, src := s.resolve(row.Key)
	v := Value{
		Key:         row.Key,
		Value:       value,
		Source:      src,
		Description: row.Description,
		Type:        row.Type,
		Category:    row.Category,
		IsSet:       value != "",
	}
	if row.Type == entities.SettingTypeSecret {
		v.Value = ""
	}
	return v
}

// SaveCategory stores submitted form values for a category. Booleans are
// true when their key is present in the form. An empty secret keeps the
// stored one. Keys of other categories are ignored.
func (s *SettingsStore) SaveCategory(category entities.SettingCategory, form map[string]string) error {
	rows, err := s.repo.ListByCategory(category)
	if err != nil {
		return err
	}

	for _, row := range rows {
		submitted, present := form[row.Key]
		switch row.Type {
		case entities.SettingTypeBoolean:
			err = s.Set(row.Key, strconv.FormatBool(present && submitted != "false"))
		case entities.SettingTypeSecret:
			if !present || submitted == "" {
				continue
			}
			err = s.Set(row.Key, submitted)
		case entities.SettingTypeInteger:
			if !present {
				continue
			}
			submitted = strings.TrimSpace(submitted)
			if submitted != "" {
				if _, convErr := strconv.Atoi(submitted); convErr != nil {
					return &InvalidValueError{Key: row.Key, Value: submitted}
				}
			}
			err = s.Set(row.Key, submitted)
		default:
			if !present {
				continue
			}
			err = s.Set(row.Key, strings.TrimSpace(submitted))
		}
		if err != nil {
			return err
		}
	}

	s.logger.Info("settings saved", zap.String("category", string(category)))
	return nil
}

// InvalidValueError is returned by SaveCategory for a malformed value.
type InvalidValueError struct {
	Key   string
	Value string
}

func (e *InvalidValueError) Error() string {
	return "invalid value for " + e.Key + ": " + e.Value
}

func defaultFor(key string) (database.DefaultSetting, bool) {
	for _, def := range database.DefaultSettings {
		if def.Key == key {
			return def, true
		}
	}
	return database.DefaultSetting{}, false
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

// EnsureAppSecret returns configured when set. Otherwise it returns the
// secret persisted in the settings table, generating one on first use.
func EnsureAppSecret(repo *settings.Repository, configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if setting, err := repo.GetSetting(entities.SettingKeyAppSecret); err == nil && setting.Value != "" {
		return setting.Value, nil
	}
	secret, err := crypto.GenerateSecret()
	if err != nil {
		return "", err
	}
	if err := repo.SetSetting(entities.SettingKeyAppSecret, secret); err != nil {
		return "", err
	}
	return secret, nil
}
