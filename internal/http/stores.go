package http

import (
	"context"
	"io"
	"time"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/exporters"
	"github.com/mrlokans/phonedir/internal/importer"
	"github.com/mrlokans/phonedir/internal/notifications"
	"github.com/mrlokans/phonedir/internal/services"
	"github.com/mrlokans/phonedir/internal/settingsstore"
)

// This file collects the dependencies of the HTTP controllers. Each
// controller takes the narrowest interface it needs so tests can swap in
// fakes; production wiring passes the services package types.

// ContactStore is implemented by *services.ContactService.
type ContactStore interface {
	List(q entities.ContactQuery) (*entities.ContactPage, error)
	Get(id uint) (*entities.Contact, error)
	Create(in services.ContactInput) (*entities.Contact, error)
	Update(id uint, in services.ContactInput) (int, error)
	Delete(id uint) error
	Restore(id uint) error
	PermanentDelete(id uint) error
	History(id uint) (*entities.Contact, []entities.History, error)
	Conflicts() ([]entities.Contact, error)
	Stats() (entities.ContactStats, error)
	FilterOptions() (services.FilterOptions, error)
	ExportCSV(w io.Writer, exporter *exporters.ContactsCSVExporter) (int, error)
	DropAll() (total, active int64, err error)
	SendPIN(ctx context.Context, id uint) error
	FetchAuthCode(ctx context.Context, id uint) (string, error)
	PreviewPhoneImport(r io.Reader, delimiter rune) (*services.PhonePreview, []services.PhoneUpdate, error)
	ConfirmPhoneImport(updates []services.PhoneUpdate) (int, error)
}

// ImportBackend is implemented by *services.ImportService.
type ImportBackend interface {
	importer.Backend
	importer.Searcher
}

// BatchQueue is implemented by *tasks.BatchImports.
type BatchQueue interface {
	Enqueue(ctx context.Context, candidates []entities.ImportCandidate) (string, error)
	Status(runID string) (*entities.SyncProgress, error)
}

// SyncRunner is implemented by *services.SyncService.
type SyncRunner interface {
	Run(ctx context.Context) (services.SyncResult, error)
}

// NotificationStore is implemented by *notifications.Service.
type NotificationStore interface {
	Latest(limit int) (notifications.Listing, error)
	MarkAllRead() (int64, error)
	Clear() (int64, error)
	NotifyTest(title, message string) error
}

// SettingsStore is implemented by *settingsstore.SettingsStore.
type SettingsStore interface {
	Category(category entities.SettingCategory) ([]settingsstore.Value, error)
	All() ([]settingsstore.Value, error)
	SaveCategory(category entities.SettingCategory, form map[string]string) error
	GetLDAPSyncConfig() settingsstore.LDAPSyncConfig
	GetLDAPSyncStatus() settingsstore.LDAPSyncStatus
	DirectoryConfig() directory.Config
	CSVDelimiter() rune
	ExportDateFormat() string
}

// PhoneLookup is the read side of the CUCM client.
type PhoneLookup interface {
	TestConnection(ctx context.Context) error
	SearchPhones(ctx context.Context, pattern string, limit int) ([]cucm.Phone, error)
	GetPhoneByMAC(ctx context.Context, mac string) (*cucm.Phone, error)
}

// PhoneLookupSource returns a client for the current CUCM settings.
type PhoneLookupSource func() (PhoneLookup, error)

// DirectoryTester checks that a directory configuration can bind and read
// its base DN.
type DirectoryTester func(ctx context.Context, cfg directory.Config) (string, error)

// SyncScheduler reports the state of the scheduled directory sync.
type SyncScheduler interface {
	NextRunTime() *time.Time
	IsRunning() bool
	Reschedule() error
}
