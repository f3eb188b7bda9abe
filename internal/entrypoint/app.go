package entrypoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/crypto"
	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/database/contacts"
	notificationsrepo "github.com/mrlokans/phonedir/internal/database/notifications"
	"github.com/mrlokans/phonedir/internal/database/settings"
	syncrepo "github.com/mrlokans/phonedir/internal/database/sync"
	"github.com/mrlokans/phonedir/internal/directory"
	http_controllers "github.com/mrlokans/phonedir/internal/http"
	"github.com/mrlokans/phonedir/internal/mail"
	"github.com/mrlokans/phonedir/internal/notifications"
	"github.com/mrlokans/phonedir/internal/services"
	"github.com/mrlokans/phonedir/internal/settingsstore"
)

// App holds the services shared by the server and the maintenance
// commands.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB            *database.Database
	Secret        string
	Settings      *settingsstore.SettingsStore
	Runs          *syncrepo.Repository
	Notifications *notifications.Service
	Phones        *cucm.Provider
	Contacts      *services.ContactService
	Imports       *services.ImportService
	Sync          *services.SyncService
}

// Bootstrap opens the database and builds the services on top of it.
func Bootstrap(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewDatabase(cfg.Database.Path, logger.Named("database"))
	if err != nil {
		return nil, err
	}

	settingsRepo := settings.NewRepository(db.DB)
	secret, err := settingsstore.EnsureAppSecret(settingsRepo, cfg.Auth.SessionSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load application secret: %w", err)
	}
	enc, err := crypto.NewEncryptorFromSecret(secret, crypto.PurposeSettings)
	if err != nil {
		db.Close()
		return nil, err
	}

	store := settingsstore.New(settingsRepo, cfg,
		settingsstore.WithEncryptor(enc),
		settingsstore.WithLogger(logger.Named("settings")))

	notes := notifications.NewService(notificationsrepo.NewRepository(db.DB), logger.Named("notifications"))
	phones := cucm.NewProvider(store.CUCMConfig, cucm.WithLogger(logger.Named("cucm")))
	phoneSource := func() (services.PhoneDirectory, error) {
		client, err := phones.Client()
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	directorySource := func() services.DirectoryReader {
		return directory.NewClient(store.DirectoryConfig(), directory.WithLogger(logger.Named("directory")))
	}

	contactRepo := contacts.NewRepository(db.DB)
	runs := syncrepo.NewRepository(db.DB)
	imports := services.NewImportService(contactRepo, directorySource, phoneSource, notes, logger.Named("import"))

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Secret:        secret,
		Settings:      store,
		Runs:          runs,
		Notifications: notes,
		Phones:        phones,
		Contacts: services.NewContactService(contactRepo, notes, logger.Named("contacts"),
			services.WithMailer(mail.NewSMTPSender(store.MailConfig, logger.Named("mail"))),
			services.WithPhones(phoneSource)),
		Imports: imports,
		Sync:    services.NewSyncService(imports, runs, store, logger.Named("sync")),
	}, nil
}

// TestDirectory checks a directory configuration without touching the
// stored settings.
func (a *App) TestDirectory(ctx context.Context, cfg directory.Config) (string, error) {
	return directory.NewClient(cfg, directory.WithLogger(a.Logger.Named("directory"))).TestConnection(ctx)
}

func (a *App) Close() error {
	return a.DB.Close()
}

// PhoneLookup returns a CUCM client for the current settings.
func (a *App) PhoneLookup() (http_controllers.PhoneLookup, error) {
	client, err := a.Phones.Client()
	if err != nil {
		return nil, err
	}
	return client, nil
}
