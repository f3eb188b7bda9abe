package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./phonedir.db"

	// DefaultLDAPSyncSchedule runs the directory sync once a day at 03:00
	DefaultLDAPSyncSchedule = "0 3 * * *"
)
