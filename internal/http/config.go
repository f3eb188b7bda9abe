package http

import (
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. Optional dependencies disable their routes
// when nil.
type RouterConfig struct {
	// Core dependencies
	Contacts      ContactStore
	Imports       ImportBackend
	Batches       BatchQueue
	Sync          SyncRunner
	Notifications NotificationStore
	Settings      SettingsStore
	Scheduler     SyncScheduler
	Database      Pinger

	// Connection checks
	TestLDAP DirectoryTester
	Phones   PhoneLookupSource

	// Security
	SessionManager *auth.SessionManager
	CSRFSecret     []byte
	SecureCookies  bool
	APIToken       string

	// UI paths
	StaticPath string

	// Application info
	Version string
	Debug   bool

	Logger *zap.Logger
}
