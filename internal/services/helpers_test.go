package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/database"
	"github.com/mrlokans/phonedir/internal/database/contacts"
	syncrepo "github.com/mrlokans/phonedir/internal/database/sync"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/mail"
)

type fakeDirectory struct {
	people     map[string]directory.Person // by DN
	all        []directory.Person
	candidates []entities.ImportCandidate
	lookupErr  error
	peopleErr  error
	lookups    int
}

func newFakeDirectory(people ...directory.Person) *fakeDirectory {
	d := &fakeDirectory{people: map[string]directory.Person{}}
	for _, p := range people {
		d.people[p.DN] = p
		d.all = append(d.all, p)
	}
	return d
}

func (d *fakeDirectory) Search(_ context.Context, term string, _, _ bool) ([]entities.ImportCandidate, error) {
	return d.candidates, nil
}

func (d *fakeDirectory) Lookup(_ context.Context, dn string) (*directory.Person, error) {
	d.lookups++
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	p, ok := d.people[dn]
	if !ok {
		return nil, directory.ErrEntryNotFound
	}
	return &p, nil
}

func (d *fakeDirectory) People(context.Context) ([]directory.Person, error) {
	if d.peopleErr != nil {
		return nil, d.peopleErr
	}
	return d.all, nil
}

func (d *fakeDirectory) source() DirectorySource {
	return func() DirectoryReader { return d }
}

type fakePhones struct {
	codes   map[string]string
	phones  map[string]cucm.Phone
	codeErr error
}

func (p *fakePhones) FetchAuthCode(_ context.Context, uid string) (string, error) {
	if p.codeErr != nil {
		return "", p.codeErr
	}
	return p.codes[uid], nil
}

func (p *fakePhones) FindPhoneByOwner(_ context.Context, uid string) (*cucm.Phone, error) {
	phone, ok := p.phones[uid]
	if !ok {
		return nil, cucm.ErrPhoneNotFound
	}
	return &phone, nil
}

func (p *fakePhones) source() PhoneSource {
	return func() (PhoneDirectory, error) { return p, nil }
}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (n *fakeNotifier) Notify(title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, message)
	return nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeStatus struct {
	status, message string
}

func (f *fakeStatus) SetLDAPSyncStatus(status, message string) error {
	f.status, f.message = status, message
	return nil
}

var errDirectoryDown = errors.New("ldap: connection refused")

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "services.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func strPtr(s string) *string { return &s }

func jane() directory.Person {
	return directory.Person{
		DN:          "uid=jdoe,ou=people,dc=example,dc=org",
		UID:         "jdoe",
		CommonName:  "Jane Doe",
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jdoe@example.org",
		Phone:       "+30 25410 79000",
		Department:  "Informatics",
		Affiliation: "faculty",
	}
}

func createManual(t *testing.T, repo *contacts.Repository, c entities.Contact) *entities.Contact {
	t.Helper()
	c.Source = entities.ContactSourceManual
	c.IsActive = true
	require.NoError(t, repo.Create(&c))
	return &c
}

type importFixture struct {
	db       *gorm.DB
	repo     *contacts.Repository
	runs     *syncrepo.Repository
	dir      *fakeDirectory
	phones   *fakePhones
	notifier *fakeNotifier
	svc      *ImportService
}

func newImportFixture(t *testing.T, people ...directory.Person) *importFixture {
	t.Helper()
	db := setupTestDB(t)
	f := &importFixture{
		db:       db,
		repo:     contacts.NewRepository(db),
		runs:     syncrepo.NewRepository(db),
		dir:      newFakeDirectory(people...),
		phones:   &fakePhones{codes: map[string]string{}, phones: map[string]cucm.Phone{}},
		notifier: &fakeNotifier{},
	}
	f.svc = NewImportService(f.repo, f.dir.source(), f.phones.source(), f.notifier, nil)
	return f
}
