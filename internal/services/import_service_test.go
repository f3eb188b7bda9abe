package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/database/contacts"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

func TestImport_NewContact(t *testing.T) {
	f := newImportFixture(t, jane())
	f.phones.codes["jdoe"] = "4821"
	f.phones.phones["jdoe"] = cucm.Phone{Name: "SEP001122AABBCC", Model: "Cisco 8841", MAC: "00:11:22:AA:BB:CC"}

	outcome, err := f.svc.Import(context.Background(), jane().DN)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeSuccess, outcome.Kind)

	c, err := f.repo.GetByUID("jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Jane", c.FirstName)
	assert.Equal(t, "Doe", c.LastName)
	assert.Equal(t, "faculty", c.Title)
	assert.Equal(t, entities.ContactSourceLDAP, c.Source)
	assert.Equal(t, jane().DN, c.DNValue())
	assert.True(t, c.IsActive)
	assert.NotNil(t, c.LastSync)
	assert.Equal(t, "4821", c.PIN)
	assert.Equal(t, "00:11:22:AA:BB:CC", c.MACAddress)
	assert.Equal(t, "Cisco 8841", c.PhoneModel)

	history, err := f.repo.History(c.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.HistoryFieldCreation, history[0].FieldName)
}

func TestImport_ConflictWithManualContact(t *testing.T) {
	f := newImportFixture(t, jane())
	manual := createManual(t, f.repo, entities.Contact{UID: strPtr("jdoe"), FirstName: "J.", LastName: "Manual", Phone: "123"})

	outcome, err := f.svc.Import(context.Background(), jane().DN)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeConflict, outcome.Kind)
	assert.Equal(t, manual.ID, outcome.ExistingContactID)
	assert.Equal(t, "jdoe", outcome.UID)

	c, err := f.repo.GetByID(manual.ID)
	require.NoError(t, err)
	assert.True(t, c.HasConflict)
	assert.Equal(t, jane().DN, *c.ConflictWith)
	assert.Equal(t, "J.", c.FirstName)
	assert.Equal(t, entities.ContactSourceManual, c.Source)
	assert.Empty(t, c.DNValue())
}

func TestImport_RefreshesDirectoryContact(t *testing.T) {
	f := newImportFixture(t, jane())
	_, err := f.svc.Import(context.Background(), jane().DN)
	require.NoError(t, err)

	moved := jane()
	moved.Department = "Physics"
	f.dir.people[moved.DN] = moved

	outcome, err := f.svc.Import(context.Background(), moved.DN)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeSuccess, outcome.Kind)

	c, err := f.repo.GetByUID("jdoe")
	require.NoError(t, err)
	assert.Equal(t, "Physics", c.Department)

	history, err := f.repo.History(c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Department", history[0].FieldName)
	assert.Equal(t, "Informatics", history[0].OldValue)
	assert.Equal(t, entities.ChangedByLDAPImport, history[0].ChangedBy)
}

func TestImport_Errors(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.Import(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrDNRequired)

	_, err = f.svc.Import(context.Background(), "uid=ghost,dc=example,dc=org")
	assert.ErrorIs(t, err, directory.ErrEntryNotFound)

	stats, err := f.repo.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestImport_EnrichmentFailureIsIgnored(t *testing.T) {
	f := newImportFixture(t, jane())
	f.phones.codeErr = errors.New("AXL fault")

	outcome, err := f.svc.Import(context.Background(), jane().DN)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeSuccess, outcome.Kind)

	c, err := f.repo.GetByUID("jdoe")
	require.NoError(t, err)
	assert.Empty(t, c.PIN)
}

func TestImport_WithoutCUCM(t *testing.T) {
	f := newImportFixture(t, jane())
	f.svc.phones = func() (PhoneDirectory, error) { return nil, cucm.ErrNotConfigured }

	outcome, err := f.svc.Import(context.Background(), jane().DN)
	require.NoError(t, err)
	assert.Equal(t, entities.OutcomeSuccess, outcome.Kind)
}

func TestSearch(t *testing.T) {
	f := newImportFixture(t)
	f.dir.candidates = []entities.ImportCandidate{{DN: jane().DN, Name: "Jane Doe", UID: "jdoe"}}

	_, err := f.svc.Search(context.Background(), importer.SearchQuery{Term: " "})
	assert.ErrorIs(t, err, directory.ErrSearchTermRequired)

	found, err := f.svc.Search(context.Background(), importer.SearchQuery{Term: "jane"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	f.dir.candidates = nil
	found, err = f.svc.Search(context.Background(), importer.SearchQuery{Term: "nobody"})
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}

// conflicted returns a fixture with a manual jdoe contact flagged against
// the directory entry.
func conflicted(t *testing.T) (*importFixture, *entities.Contact) {
	t.Helper()
	f := newImportFixture(t, jane())
	manual := createManual(t, f.repo, entities.Contact{
		UID:       strPtr("jdoe"),
		FirstName: "J.",
		LastName:  "",
		Phone:     "555-0101",
		Notes:     "desk by the window",
	})
	outcome, err := f.svc.Import(context.Background(), jane().DN)
	require.NoError(t, err)
	require.Equal(t, entities.OutcomeConflict, outcome.Kind)
	return f, manual
}

func TestResolveConflict_KeepManual(t *testing.T) {
	f, manual := conflicted(t)

	require.NoError(t, f.svc.ResolveConflict(context.Background(), manual.ID, entities.ResolutionKeepManual, jane().DN))

	c, err := f.repo.GetByID(manual.ID)
	require.NoError(t, err)
	assert.False(t, c.HasConflict)
	assert.Nil(t, c.ConflictWith)
	assert.Equal(t, "J.", c.FirstName)
	assert.Equal(t, "555-0101", c.Phone)
	assert.Equal(t, entities.ContactSourceManual, c.Source)
	assert.Empty(t, c.DNValue())
	assert.Equal(t, 1, f.dir.lookups, "keep_manual does not query the directory")
}

func TestResolveConflict_UseDirectory(t *testing.T) {
	f, manual := conflicted(t)

	require.NoError(t, f.svc.ResolveConflict(context.Background(), manual.ID, entities.ResolutionUseDirectory, jane().DN))

	c, err := f.repo.GetByID(manual.ID)
	require.NoError(t, err)
	assert.False(t, c.HasConflict)
	assert.Equal(t, "Jane", c.FirstName)
	assert.Equal(t, "Doe", c.LastName)
	assert.Equal(t, "+30 25410 79000", c.Phone)
	assert.Equal(t, "desk by the window", c.Notes)
	assert.Equal(t, entities.ContactSourceLDAP, c.Source)
	assert.Equal(t, jane().DN, c.DNValue())

	history, err := f.repo.History(c.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}

func TestResolveConflict_MergeLink(t *testing.T) {
	f, manual := conflicted(t)

	require.NoError(t, f.svc.ResolveConflict(context.Background(), manual.ID, entities.ResolutionMergeLink, ""))

	c, err := f.repo.GetByID(manual.ID)
	require.NoError(t, err)
	assert.False(t, c.HasConflict)
	assert.Equal(t, "J.", c.FirstName, "non-empty fields are kept")
	assert.Equal(t, "555-0101", c.Phone)
	assert.Equal(t, "Doe", c.LastName, "empty fields are filled")
	assert.Equal(t, "jdoe@example.org", c.Email)
	assert.Equal(t, "jdoe", c.UIDValue())
	assert.Equal(t, jane().DN, c.DNValue(), "dn defaults to the flagged entry")
	assert.Equal(t, entities.ContactSourceLDAP, c.Source)
}

func TestResolveConflict_OnlyOnce(t *testing.T) {
	f, manual := conflicted(t)

	require.NoError(t, f.svc.ResolveConflict(context.Background(), manual.ID, entities.ResolutionKeepManual, jane().DN))
	err := f.svc.ResolveConflict(context.Background(), manual.ID, entities.ResolutionUseDirectory, jane().DN)
	assert.ErrorIs(t, err, ErrNoConflict)

	c, err := f.repo.GetByID(manual.ID)
	require.NoError(t, err)
	assert.Equal(t, "J.", c.FirstName)
}

func TestResolveConflict_FailureLeavesContactUntouched(t *testing.T) {
	f, manual := conflicted(t)
	f.dir.lookupErr = errDirectoryDown

	err := f.svc.ResolveConflict(context.Background(), manual.ID, entities.ResolutionUseDirectory, jane().DN)
	assert.ErrorIs(t, err, errDirectoryDown)

	c, err := f.repo.GetByID(manual.ID)
	require.NoError(t, err)
	assert.True(t, c.HasConflict)
	assert.Equal(t, "J.", c.FirstName)
	assert.Equal(t, entities.ContactSourceManual, c.Source)
}

func TestResolveConflict_InvalidInput(t *testing.T) {
	f, manual := conflicted(t)

	err := f.svc.ResolveConflict(context.Background(), manual.ID, "delete_everything", jane().DN)
	assert.True(t, importer.IsRejected(err))

	err = f.svc.ResolveConflict(context.Background(), 9999, entities.ResolutionKeepManual, "")
	assert.ErrorIs(t, err, contacts.ErrNotFound)
}

func TestBatchImport_InProcess(t *testing.T) {
	bob := directory.Person{DN: "uid=bob,dc=example,dc=org", UID: "bob", FirstName: "Bob"}
	f := newImportFixture(t, jane(), bob)
	createManual(t, f.repo, entities.Contact{UID: strPtr("bob"), FirstName: "Robert"})

	candidates := []entities.ImportCandidate{
		{DN: jane().DN, Name: "Jane Doe", UID: "jdoe"},
		{DN: bob.DN, Name: "Bob", UID: "bob"},
		{DN: "uid=ghost,dc=example,dc=org", Name: "Ghost", UID: "ghost"},
	}

	result := importer.NewBatchImporter(f.svc).Run(context.Background(), candidates, nil)

	assert.Equal(t, 1, result.Summary.Success)
	assert.Equal(t, 1, result.Summary.Conflicts)
	assert.Equal(t, 1, result.Summary.Errors)
	assert.Equal(t, 3, result.Summary.Completed)
	require.Len(t, result.Conflicts(), 1)
	assert.Equal(t, "bob", result.Conflicts()[0].Outcome.UID)
}
