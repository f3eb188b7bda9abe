package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/phonedir/internal/auth"
	"github.com/mrlokans/phonedir/internal/client"
	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/http"
	"github.com/mrlokans/phonedir/internal/importer"
	"github.com/mrlokans/phonedir/internal/mail"
	"github.com/mrlokans/phonedir/internal/notifications"
	"github.com/mrlokans/phonedir/internal/scheduler"
	"github.com/mrlokans/phonedir/internal/services"
	"github.com/mrlokans/phonedir/internal/settingsstore"
	"github.com/mrlokans/phonedir/internal/tasks"
)

// =============================================================================
// Import Backends
// =============================================================================

// The in-process service and the REST client are interchangeable backends
// for the resolver and the batch importer.
var _ importer.Backend = (*services.ImportService)(nil)
var _ importer.Searcher = (*services.ImportService)(nil)
var _ importer.Backend = (*client.Client)(nil)
var _ importer.Searcher = (*client.Client)(nil)
var _ http.ImportBackend = (*services.ImportService)(nil)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.ContactStore = (*services.ContactService)(nil)
var _ http.Pinger = (*database.Database)(nil)
var _ http.PhoneImportSession = (*auth.SessionManager)(nil)

// Settings
var _ http.SettingsStore = (*settingsstore.SettingsStore)(nil)
var _ http.CSVFormat = (*settingsstore.SettingsStore)(nil)
var _ scheduler.SyncConfigSource = (*settingsstore.SettingsStore)(nil)
var _ services.SyncStatusRecorder = (*settingsstore.SettingsStore)(nil)

// Notifications
var _ http.NotificationStore = (*notifications.Service)(nil)
var _ services.Notifier = (*notifications.Service)(nil)
var _ tasks.Notifier = (*notifications.Service)(nil)
var _ tasks.NotificationCleaner = (*notifications.Service)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ services.DirectoryReader = (*directory.Client)(nil)
var _ services.PhoneDirectory = (*cucm.Client)(nil)
var _ http.PhoneLookup = (*cucm.Client)(nil)
var _ mail.Sender = (*mail.SMTPSender)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.BatchQueue = (*tasks.BatchImports)(nil)
var _ http.SyncRunner = (*services.SyncService)(nil)
var _ scheduler.Syncer = (*services.SyncService)(nil)
var _ http.SyncScheduler = (*scheduler.LDAPSyncScheduler)(nil)
