package services

import (
	"context"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
)

// DirectoryReader provides read-only access to the LDAP directory.
type DirectoryReader interface {
	Search(ctx context.Context, term string, excludeStudents, excludeAlumni bool) ([]entities.ImportCandidate, error)
	Lookup(ctx context.Context, dn string) (*directory.Person, error)
	People(ctx context.Context) ([]directory.Person, error)
}

// DirectorySource returns a reader for the current directory settings.
type DirectorySource func() DirectoryReader

// PhoneDirectory looks up CUCM data for a directory user.
type PhoneDirectory interface {
	FetchAuthCode(ctx context.Context, uid string) (string, error)
	FindPhoneByOwner(ctx context.Context, uid string) (*cucm.Phone, error)
}

// PhoneSource returns a CUCM client, or an error when CUCM is not
// configured.
type PhoneSource func() (PhoneDirectory, error)

// Notifier stores operator notifications.
type Notifier interface {
	Notify(title, message string) error
}

// SyncStatusRecorder keeps the outcome of the last directory sync.
type SyncStatusRecorder interface {
	SetLDAPSyncStatus(status, message string) error
}
