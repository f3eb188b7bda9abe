package settingsstore

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/crypto"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/database/settings"
	"github.com/mrlokans/phonedir/internal/entities"
)

func setupTestDB(t *testing.T) (*settings.Repository, func()) {
	t.Helper()
	dbPath := "./test_settings_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath, nil)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return settings.NewRepository(db.DB), cleanup
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LDAP.Port = 389
	cfg.LDAP.AllowAnonymous = true
	cfg.LDAP.PageSize = 100
	cfg.LDAP.Timeout = 5 * time.Second
	cfg.Sync.Schedule = config.DefaultLDAPSyncSchedule
	cfg.SMTP.Port = 587
	cfg.CUCM.Timeout = 10 * time.Second
	cfg.Import.MaxBatchSize = 500
	return cfg
}

func TestGet_Priority(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	t.Setenv("LDAP_SERVER", "ldap.env.example.org")
	cfg := testConfig()
	cfg.LDAP.Server = "ldap.env.example.org"
	store := New(repo, cfg)

	assert.Equal(t, "389", store.Get(entities.SettingKeyLDAPPort))
	assert.Equal(t, SourceDefault, store.Source(entities.SettingKeyLDAPPort))

	assert.Equal(t, "ldap.env.example.org", store.Get(entities.SettingKeyLDAPServer))
	assert.Equal(t, SourceEnvironment, store.Source(entities.SettingKeyLDAPServer))

	require.NoError(t, store.Set(entities.SettingKeyLDAPServer, "ldap.db.example.org"))
	assert.Equal(t, "ldap.db.example.org", store.Get(entities.SettingKeyLDAPServer))
	assert.Equal(t, SourceDatabase, store.Source(entities.SettingKeyLDAPServer))

	require.NoError(t, store.Clear(entities.SettingKeyLDAPServer))
	assert.Equal(t, "ldap.env.example.org", store.Get(entities.SettingKeyLDAPServer))

	// metadata survives clearing
	row, err := repo.GetSetting(entities.SettingKeyLDAPServer)
	require.NoError(t, err)
	assert.Equal(t, entities.SettingCategoryLDAP, row.Category)
}

func TestGet_SeededDefaults(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, nil)

	assert.Equal(t, "100", store.Get(entities.SettingKeyImportBatchSize))
	assert.Equal(t, ',', store.CSVDelimiter())
	assert.Equal(t, "2006-01-02 15:04", store.ExportDateFormat())
	assert.Equal(t, "", store.Get("UNKNOWN_KEY"))
}

func TestBoolAndInt(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	assert.True(t, store.Bool(entities.SettingKeyLDAPAllowAnonymous))
	require.NoError(t, store.Set(entities.SettingKeyLDAPAllowAnonymous, "false"))
	assert.False(t, store.Bool(entities.SettingKeyLDAPAllowAnonymous))

	require.NoError(t, store.Set(entities.SettingKeyLDAPPort, "not-a-number"))
	assert.Equal(t, 42, store.Int(entities.SettingKeyLDAPPort, 42))
}

func TestSecrets_EncryptedAtRest(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	enc, err := crypto.NewEncryptorFromSecret("test-secret", crypto.PurposeSettings)
	require.NoError(t, err)
	store := New(repo, testConfig(), WithEncryptor(enc))

	require.NoError(t, store.Set(entities.SettingKeyLDAPBindPassword, "s3cret"))

	row, err := repo.GetSetting(entities.SettingKeyLDAPBindPassword)
	require.NoError(t, err)
	assert.True(t, crypto.IsEncrypted(row.Value))
	assert.NotContains(t, row.Value, "s3cret")

	assert.Equal(t, "s3cret", store.Get(entities.SettingKeyLDAPBindPassword))

	// non-secret values stay readable
	require.NoError(t, store.Set(entities.SettingKeyLDAPBindDN, "cn=admin"))
	row, err = repo.GetSetting(entities.SettingKeyLDAPBindDN)
	require.NoError(t, err)
	assert.Equal(t, "cn=admin", row.Value)
}

func TestCategory_HidesSecrets(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	require.NoError(t, store.Set(entities.SettingKeyCUCMPassword, "axlpass"))

	values, err := store.Category(entities.SettingCategoryCUCM)
	require.NoError(t, err)
	require.Len(t, values, 5)

	var found bool
	for _, v := range values {
		if v.Key == entities.SettingKeyCUCMPassword {
			found = true
			assert.Empty(t, v.Value)
			assert.True(t, v.IsSet)
			assert.Equal(t, entities.SettingTypeSecret, v.Type)
		}
	}
	assert.True(t, found)

	all, err := store.All()
	require.NoError(t, err)
	for _, v := range all {
		assert.NotEqual(t, entities.SettingCategoryInternal, v.Category)
	}
}

func TestSaveCategory(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	require.NoError(t, store.Set(entities.SettingKeyLDAPBindPassword, "old"))
	require.NoError(t, store.Set(entities.SettingKeyLDAPUseSSL, "true"))

	err := store.SaveCategory(entities.SettingCategoryLDAP, map[string]string{
		entities.SettingKeyLDAPServer:          " ldap.example.org ",
		entities.SettingKeyLDAPPort:            "636",
		entities.SettingKeyLDAPBindPassword:    "",
		entities.SettingKeyLDAPExcludeStudents: "on",
		entities.SettingKeyCUCMHost:            "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "ldap.example.org", store.Get(entities.SettingKeyLDAPServer))
	assert.Equal(t, 636, store.Int(entities.SettingKeyLDAPPort, 0))
	assert.Equal(t, "old", store.Get(entities.SettingKeyLDAPBindPassword))
	assert.True(t, store.Bool(entities.SettingKeyLDAPExcludeStudents))
	assert.False(t, store.Bool(entities.SettingKeyLDAPUseSSL), "absent checkbox means false")
	assert.Equal(t, SourceDefault, store.Source(entities.SettingKeyCUCMHost))
}

func TestSaveCategory_InvalidInteger(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	err := store.SaveCategory(entities.SettingCategoryEmail, map[string]string{
		entities.SettingKeySMTPPort: "abc",
	})
	var invalid *InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, entities.SettingKeySMTPPort, invalid.Key)
}

func TestConnectionConfigs(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	require.NoError(t, store.Set(entities.SettingKeyLDAPServer, "ldap.example.org"))
	require.NoError(t, store.Set(entities.SettingKeyLDAPBaseDN, "dc=example,dc=org"))
	require.NoError(t, store.Set(entities.SettingKeyCUCMHost, "cucm.example.org"))
	require.NoError(t, store.Set(entities.SettingKeyMailFrom, "pbx@example.org"))

	dir := store.DirectoryConfig()
	assert.Equal(t, "ldap.example.org", dir.Server)
	assert.Equal(t, 389, dir.Port)
	assert.Equal(t, "dc=example,dc=org", dir.BaseDN)
	assert.True(t, dir.Anonymous())
	assert.EqualValues(t, 100, dir.PageSize)
	assert.Equal(t, 5*time.Second, dir.Timeout)

	cu := store.CUCMConfig()
	assert.Equal(t, "cucm.example.org", cu.Host)
	assert.Equal(t, 10*time.Second, cu.Timeout)
	assert.False(t, cu.Configured())

	m := store.MailConfig()
	assert.Equal(t, 587, m.Port)
	assert.Equal(t, "pbx@example.org", m.From)
}

func TestImportBatchSize(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	assert.Equal(t, 100, store.ImportBatchSize())
	require.NoError(t, store.Set(entities.SettingKeyImportBatchSize, "10000"))
	assert.Equal(t, 500, store.ImportBatchSize())
}

func TestEnsureAppSecret(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	configured, err := EnsureAppSecret(repo, "from-env")
	require.NoError(t, err)
	assert.Equal(t, "from-env", configured)

	first, err := EnsureAppSecret(repo, "")
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := EnsureAppSecret(repo, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLDAPSyncStatus(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	store := New(repo, testConfig())

	assert.Nil(t, store.GetLDAPSyncStatus().LastSyncAt)

	require.NoError(t, store.SetLDAPSyncStatus("success", "Created: 3, Updated: 1"))
	status := store.GetLDAPSyncStatus()
	require.NotNil(t, status.LastSyncAt)
	assert.Equal(t, "success", status.Status)
	assert.Equal(t, "Created: 3, Updated: 1", status.Message)

	cfg := store.GetLDAPSyncConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "0 3 * * *", cfg.Schedule)
	assert.Equal(t, "Daily at 03:00", cfg.Description)
}
