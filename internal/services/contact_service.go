package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/database/contacts"
	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/exporters"
	"github.com/mrlokans/phonedir/internal/mail"
)

var (
	ErrActiveContact = errors.New("cannot permanently delete an active contact")
	ErrDuplicateUID  = errors.New("a contact with this UID already exists")
	ErrNoUID         = errors.New("contact has no UID")
	ErrNoAuthCode    = errors.New("no authorization code found for this user")
	ErrNoMailer      = errors.New("email is not configured")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return e.Field + " is required"
}

// ContactInput carries the editable fields of a contact. UID is only used
// on creation.
type ContactInput struct {
	UID        string `json:"uid"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	PhoneModel string `json:"phone_model"`
	MACAddress string `json:"mac_address"`
	PIN        string `json:"pin"`
	Notes      string `json:"notes"`
	Department string `json:"department"`
	Title      string `json:"title"`
}

func (in ContactInput) values() map[string]string {
	return map[string]string{
		"first_name":  in.FirstName,
		"last_name":   in.LastName,
		"email":       in.Email,
		"phone":       in.Phone,
		"phone_model": in.PhoneModel,
		"mac_address": in.MACAddress,
		"pin":         in.PIN,
		"notes":       in.Notes,
		"department":  in.Department,
		"title":       in.Title,
	}
}

// ContactService manages contacts and their change history.
type ContactService struct {
	repo     *contacts.Repository
	notifier Notifier
	mailer   mail.Sender
	phones   PhoneSource
	logger   *zap.Logger
	now      func() time.Time
}

type ContactOption func(*ContactService)

func WithMailer(m mail.Sender) ContactOption {
	return func(s *ContactService) { s.mailer = m }
}

func WithPhones(p PhoneSource) ContactOption {
	return func(s *ContactService) { s.phones = p }
}

// NewContactService creates a new ContactService. notifier may be nil.
func NewContactService(repo *contacts.Repository, notifier Notifier, logger *zap.Logger, opts ...ContactOption) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ContactService{repo: repo, notifier: notifier, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ContactService) notify(title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(title, message); err != nil {
		s.logger.Warn("failed to store notification", zap.String("title", title), zap.Error(err))
	}
}

func (s *ContactService) List(q entities.ContactQuery) (*entities.ContactPage, error) {
	return s.repo.List(q)
}

func (s *ContactService) Get(id uint) (*entities.Contact, error) {
	return s.repo.GetByID(id)
}

// Create stores a manual contact. First name, last name and UID are
// required and the UID must be unused.
func (s *ContactService) Create(in ContactInput) (*entities.Contact, error) {
	in.UID = strings.TrimSpace(in.UID)
	switch {
	case strings.TrimSpace(in.FirstName) == "":
		return nil, &ValidationError{Field: "first_name"}
	case strings.TrimSpace(in.LastName) == "":
		return nil, &ValidationError{Field: "last_name"}
	case in.UID == "":
		return nil, &ValidationError{Field: "uid"}
	}

	if _, err := s.repo.GetByUID(in.UID); err == nil {
		return nil, ErrDuplicateUID
	} else if !errors.Is(err, contacts.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	uid := in.UID
	contact := &entities.Contact{
		UID:      &uid,
		Source:   entities.ContactSourceManual,
		IsActive: true,
		LastSync: &now,
	}
	for key, value := range in.values() {
		fieldByKey(key).set(contact, strings.TrimSpace(value))
	}

	err := s.repo.SaveWithHistory(contact, entities.History{
		FieldName: entities.HistoryFieldCreation,
		NewValue:  "Contact manually created",
		ChangedBy: entities.ChangedBySystem,
	})
	if err != nil {
		return nil, err
	}

	s.notify("New Contact Created", fmt.Sprintf("Contact %s was manually created.", contact.FullName()))
	s.logger.Info("contact created", zap.Uint("id", contact.ID), zap.String("uid", uid))
	return contact, nil
}

// Update replaces every editable field and records one history entry per
// changed field. It returns the number of changed fields.
func (s *ContactService) Update(id uint, in ContactInput) (int, error) {
	contact, err := s.repo.GetByID(id)
	if err != nil {
		return 0, err
	}

	values := in.values()
	var changes changeSet
	for _, f := range editableFields {
		changes.set(contact, f.key, strings.TrimSpace(values[f.key]), entities.ChangedBySystem)
	}
	if len(changes) == 0 {
		return 0, nil
	}
	if err := s.repo.SaveWithHistory(contact, changes...); err != nil {
		return 0, err
	}
	return len(changes), nil
}

// Delete deactivates a contact.
func (s *ContactService) Delete(id uint) error {
	return s.setActive(id, false)
}

// Restore reactivates a deleted contact.
func (s *ContactService) Restore(id uint) error {
	return s.setActive(id, true)
}

func (s *ContactService) setActive(id uint, active bool) error {
	contact, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if contact.IsActive == active {
		return nil
	}

	h := entities.History{FieldName: entities.HistoryFieldStatus, OldValue: "Active", NewValue: "Deleted", ChangedBy: entities.ChangedBySystem}
	if active {
		h.OldValue, h.NewValue = h.NewValue, h.OldValue
	}
	contact.IsActive = active
	return s.repo.SaveWithHistory(contact, h)
}

// PermanentDelete removes an inactive contact and its history.
func (s *ContactService) PermanentDelete(id uint) error {
	contact, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if contact.IsActive {
		return ErrActiveContact
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	s.notify("Contact Permanently Deleted",
		fmt.Sprintf("Contact %s (%s) was permanently deleted.", contact.FullName(), contact.UIDValue()))
	s.logger.Info("contact permanently deleted", zap.Uint("id", id))
	return nil
}

// History returns the contact with its change log, newest first.
func (s *ContactService) History(id uint) (*entities.Contact, []entities.History, error) {
	contact, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.repo.History(id)
	if err != nil {
		return nil, nil, err
	}
	return contact, entries, nil
}

func (s *ContactService) Conflicts() ([]entities.Contact, error) {
	return s.repo.Conflicts()
}

func (s *ContactService) Stats() (entities.ContactStats, error) {
	return s.repo.Stats()
}

// FilterOptions holds the distinct values offered by the listing filters.
type FilterOptions struct {
	PhoneModels []string `json:"phone_models"`
	Departments []string `json:"departments"`
}

func (s *ContactService) FilterOptions() (FilterOptions, error) {
	models, err := s.repo.PhoneModels()
	if err != nil {
		return FilterOptions{}, err
	}
	departments, err := s.repo.Departments()
	if err != nil {
		return FilterOptions{}, err
	}
	return FilterOptions{PhoneModels: models, Departments: departments}, nil
}

// ExportCSV writes every active contact.
func (s *ContactService) ExportCSV(w io.Writer, exporter *exporters.ContactsCSVExporter) (int, error) {
	active, err := s.repo.Active()
	if err != nil {
		return 0, err
	}
	return exporter.Export(w, active)
}

// DropAll deletes every contact and its history.
func (s *ContactService) DropAll() (total, active int64, err error) {
	stats, err := s.repo.Stats()
	if err != nil {
		return 0, 0, err
	}
	if _, err := s.repo.DeleteAll(); err != nil {
		return 0, 0, err
	}

	s.notify("Database Cleared", fmt.Sprintf("All contacts have been deleted: %d active and %d inactive contacts.",
		stats.Active, stats.Total-stats.Active))
	s.logger.Warn("all contacts deleted", zap.Int64("total", stats.Total))
	return stats.Total, stats.Active, nil
}

// SendPIN emails the contact its PIN and records it in the history.
func (s *ContactService) SendPIN(ctx context.Context, id uint) error {
	if s.mailer == nil {
		return ErrNoMailer
	}
	contact, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	msg, err := mail.PINMessage(contact.Email, contact.FullName(), contact.PIN)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return err
	}
	return s.repo.AddHistory(contact.ID, entities.History{
		FieldName: "PIN Email",
		NewValue:  "Sent to " + contact.Email,
		ChangedBy: entities.ChangedBySystem,
	})
}

// FetchAuthCode copies the contact's CUCM authorization code into its PIN.
func (s *ContactService) FetchAuthCode(ctx context.Context, id uint) (string, error) {
	contact, err := s.repo.GetByID(id)
	if err != nil {
		return "", err
	}
	uid := contact.UIDValue()
	if uid == "" {
		return "", ErrNoUID
	}
	if s.phones == nil {
		return "", ErrNoAuthCode
	}
	phones, err := s.phones()
	if err != nil {
		return "", err
	}
	code, err := phones.FetchAuthCode(ctx, uid)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", ErrNoAuthCode
	}

	var changes changeSet
	changes.set(contact, "pin", code, entities.ChangedByCUCM)
	if len(changes) > 0 {
		if err := s.repo.SaveWithHistory(contact, changes...); err != nil {
			return "", err
		}
	}
	return code, nil
}
