package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/cucm"
	"github.com/mrlokans/phonedir/internal/database/contacts"
	"github.com/mrlokans/phonedir/internal/directory"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importer"
)

var (
	ErrNoConflict  = errors.New("no conflict found")
	ErrDNRequired  = errors.New("directory DN is required")
	ErrNoDirectory = errors.New("directory is not configured")
)

var (
	_ importer.Backend  = (*ImportService)(nil)
	_ importer.Searcher = (*ImportService)(nil)
)

// ImportService imports directory entries into the contact list and
// resolves UID conflicts with manual contacts.
type ImportService struct {
	contacts  *contacts.Repository
	directory DirectorySource
	phones    PhoneSource
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewImportService creates a new ImportService. phones and notifier may be
// nil.
func NewImportService(repo *contacts.Repository, dir DirectorySource, phones PhoneSource, notifier Notifier, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		contacts:  repo,
		directory: dir,
		phones:    phones,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ImportService) reader() (DirectoryReader, error) {
	if s.directory == nil {
		return nil, ErrNoDirectory
	}
	r := s.directory()
	if r == nil {
		return nil, ErrNoDirectory
	}
	return r, nil
}

// Search finds import candidates in the directory.
func (s *ImportService) Search(ctx context.Context, q importer.SearchQuery) ([]entities.ImportCandidate, error) {
	term := strings.TrimSpace(q.Term)
	if term == "" {
		return nil, directory.ErrSearchTermRequired
	}
	r, err := s.reader()
	if err != nil {
		return nil, err
	}
	found, err := r.Search(ctx, term, q.ExcludeStudents, q.ExcludeAlumni)
	if err != nil {
		return nil, err
	}
	if found == nil {
		found = []entities.ImportCandidate{}
	}
	return found, nil
}

// Import creates or refreshes the contact for a directory entry. When a
// manual contact already uses the entry's UID, that contact is flagged and a
// Conflict outcome is returned; nothing else is modified.
func (s *ImportService) Import(ctx context.Context, dn string) (entities.ImportOutcome, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return entities.ImportOutcome{}, ErrDNRequired
	}
	r, err := s.reader()
	if err != nil {
		return entities.ImportOutcome{}, err
	}
	person, err := r.Lookup(ctx, dn)
	if err != nil {
		return entities.ImportOutcome{}, err
	}

	var contact *entities.Contact
	if person.UID != "" {
		existing, err := s.contacts.GetByUID(person.UID)
		switch {
		case err == nil && existing.Source == entities.ContactSourceManual:
			return s.flagConflict(existing, dn)
		case err == nil:
			contact = existing
		case !errors.Is(err, contacts.ErrNotFound):
			return entities.ImportOutcome{}, err
		}
	}
	if contact == nil {
		existing, err := s.contacts.GetByDN(dn)
		switch {
		case err == nil:
			contact = existing
		case !errors.Is(err, contacts.ErrNotFound):
			return entities.ImportOutcome{}, err
		}
	}

	if err := s.upsert(ctx, contact, person, dn, entities.ChangedByLDAPImport); err != nil {
		return entities.ImportOutcome{}, err
	}

	s.logger.Info("contact imported", zap.String("dn", dn), zap.String("uid", person.UID))
	return entities.SuccessOutcome("Contact imported successfully"), nil
}

func (s *ImportService) flagConflict(contact *entities.Contact, dn string) (entities.ImportOutcome, error) {
	contact.HasConflict = true
	contact.ConflictWith = &dn
	if err := s.contacts.Save(contact); err != nil {
		return entities.ImportOutcome{}, err
	}

	uid := contact.UIDValue()
	s.logger.Info("import conflict", zap.String("uid", uid), zap.Uint("contact_id", contact.ID), zap.String("dn", dn))
	return entities.ConflictOutcome(contact.ID, uid,
		fmt.Sprintf("Contact with UID %s already exists as a manual entry", uid)), nil
}

// upsert writes person onto contact, creating a new contact when contact is
// nil.
func (s *ImportService) upsert(ctx context.Context, contact *entities.Contact, person *directory.Person, dn, changedBy string) error {
	isNew := contact == nil
	if isNew {
		contact = &entities.Contact{}
	}

	var changes changeSet
	overwriteFromDirectory(&changes, contact, person, changedBy)
	s.enrich(ctx, &changes, contact)

	now := s.now()
	contact.LDAPDN = &dn
	if person.UID != "" {
		uid := person.UID
		contact.UID = &uid
	}
	contact.Source = entities.ContactSourceLDAP
	contact.LastSync = &now

	if !contact.IsActive && !isNew {
		changes = append(changes, entities.History{
			FieldName: entities.HistoryFieldStatus,
			OldValue:  "Deleted",
			NewValue:  "Active",
			ChangedBy: changedBy,
		})
	}
	contact.IsActive = true

	if isNew {
		changes = changeSet{{
			FieldName: entities.HistoryFieldCreation,
			NewValue:  "Imported from LDAP",
			ChangedBy: changedBy,
		}}
	}
	return s.contacts.SaveWithHistory(contact, changes...)
}

func overwriteFromDirectory(cs *changeSet, c *entities.Contact, p *directory.Person, changedBy string) {
	cs.set(c, "first_name", p.FirstName, changedBy)
	cs.set(c, "last_name", p.LastName, changedBy)
	cs.set(c, "email", p.Email, changedBy)
	cs.set(c, "phone", p.Phone, changedBy)
	cs.set(c, "department", p.Department, changedBy)
	cs.set(c, "title", p.Affiliation, changedBy)
}

func fillFromDirectory(cs *changeSet, c *entities.Contact, p *directory.Person, changedBy string) {
	cs.fill(c, "first_name", p.FirstName, changedBy)
	cs.fill(c, "last_name", p.LastName, changedBy)
	cs.fill(c, "email", p.Email, changedBy)
	cs.fill(c, "phone", p.Phone, changedBy)
	cs.fill(c, "department", p.Department, changedBy)
	cs.fill(c, "title", p.Affiliation, changedBy)
}

// enrich fills an empty PIN, MAC address and phone model from CUCM. CUCM
// failures are logged and never fail the caller.
func (s *ImportService) enrich(ctx context.Context, cs *changeSet, c *entities.Contact) {
	uid := c.UIDValue()
	if s.phones == nil || uid == "" {
		return
	}
	phones, err := s.phones()
	if err != nil {
		if !errors.Is(err, cucm.ErrNotConfigured) {
			s.logger.Warn("CUCM unavailable", zap.Error(err))
		}
		return
	}

	if c.PIN == "" {
		code, err := phones.FetchAuthCode(ctx, uid)
		if err != nil {
			s.logger.Warn("failed to fetch authorization code", zap.String("uid", uid), zap.Error(err))
		} else if code != "" {
			cs.set(c, "pin", code, entities.ChangedByCUCM)
		}
	}

	if c.MACAddress == "" || c.PhoneModel == "" {
		phone, err := phones.FindPhoneByOwner(ctx, uid)
		switch {
		case errors.Is(err, cucm.ErrPhoneNotFound):
		case err != nil:
			s.logger.Warn("failed to look up phone", zap.String("uid", uid), zap.Error(err))
		default:
			cs.fill(c, "mac_address", phone.MAC, entities.ChangedByCUCM)
			cs.fill(c, "phone_model", phone.Model, entities.ChangedByCUCM)
		}
	}
}

// ResolveConflict applies the operator's choice to a flagged manual
// contact. A contact that is not flagged is refused with ErrNoConflict. On
// failure the contact is left unmodified. dn defaults to the entry recorded
// when the conflict was flagged.
func (s *ImportService) ResolveConflict(ctx context.Context, contactID uint, action entities.ResolutionAction, dn string) error {
	if !action.Valid() {
		return importer.Rejected("invalid resolution action %q", action)
	}

	contact, err := s.contacts.GetByID(contactID)
	if err != nil {
		return err
	}
	if !contact.HasConflict {
		return ErrNoConflict
	}

	dn = strings.TrimSpace(dn)
	if dn == "" && contact.ConflictWith != nil {
		dn = *contact.ConflictWith
	}

	var changes changeSet
	switch action {
	case entities.ResolutionKeepManual:
	case entities.ResolutionUseDirectory, entities.ResolutionMergeLink:
		if dn == "" {
			return ErrDNRequired
		}
		r, err := s.reader()
		if err != nil {
			return err
		}
		person, err := r.Lookup(ctx, dn)
		if err != nil {
			return err
		}

		if action == entities.ResolutionUseDirectory {
			overwriteFromDirectory(&changes, contact, person, entities.ChangedByLDAPImport)
			if person.UID != "" {
				uid := person.UID
				contact.UID = &uid
			}
			s.enrich(ctx, &changes, contact)
		} else {
			fillFromDirectory(&changes, contact, person, entities.ChangedByLDAPImport)
		}

		now := s.now()
		contact.LDAPDN = &dn
		contact.Source = entities.ContactSourceLDAP
		contact.LastSync = &now
	}

	contact.HasConflict = false
	contact.ConflictWith = nil
	if err := s.contacts.SaveWithHistory(contact, changes...); err != nil {
		return err
	}

	s.logger.Info("conflict resolved",
		zap.Uint("contact_id", contactID),
		zap.String("action", string(action)),
		zap.Int("changes", len(changes)))
	return nil
}

func (s *ImportService) notify(title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(title, message); err != nil {
		s.logger.Warn("failed to store notification", zap.String("title", title), zap.Error(err))
	}
}
