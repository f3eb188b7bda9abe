// Package contacts provides database operations for contacts and their
// field history.
//
// # Usage
//
//	repo := contacts.NewRepository(db)
//	contact, err := repo.GetByUID("jdoe")
package contacts

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/phonedir/internal/entities"
)

var ErrNotFound = errors.New("contact not found")

// Pagination bounds for listings.
const (
	MinPerPage     = 10
	MaxPerPage     = 100
	DefaultPerPage = 10
)

// Repository handles all contact database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new contacts repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) GetByID(id uint) (*entities.Contact, error) {
	var contact entities.Contact
	if err := r.db.First(&contact, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &contact, nil
}

func (r *Repository) GetByUID(uid string) (*entities.Contact, error) {
	var contact entities.Contact
	if err := r.db.Where("uid = ?", uid).First(&contact).Error; err != nil {
		return nil, notFound(err)
	}
	return &contact, nil
}

func (r *Repository) GetByDN(dn string) (*entities.Contact, error) {
	var contact entities.Contact
	if err := r.db.Where("ldap_dn = ?", dn).First(&contact).Error; err != nil {
		return nil, notFound(err)
	}
	return &contact, nil
}

// GetByUIDs returns the contacts whose UID is in uids, keyed by UID.
func (r *Repository) GetByUIDs(uids []string) (map[string]*entities.Contact, error) {
	out := make(map[string]*entities.Contact, len(uids))
	if len(uids) == 0 {
		return out, nil
	}
	var found []entities.Contact
	if err := r.db.Where("uid IN ?", uids).Find(&found).Error; err != nil {
		return nil, err
	}
	for i := range found {
		out[found[i].UIDValue()] = &found[i]
	}
	return out, nil
}

func (r *Repository) Create(contact *entities.Contact) error {
	return r.db.Create(contact).Error
}

// Save persists every column of contact.
func (r *Repository) Save(contact *entities.Contact) error {
	return r.db.Save(contact).Error
}

// SaveWithHistory persists contact and appends the given history entries in
// one transaction. Entries without a ContactID are attached to contact.
func (r *Repository) SaveWithHistory(contact *entities.Contact, entries ...entities.History) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(contact).Error; err != nil {
			return err
		}
		return addHistory(tx, contact.ID, entries)
	})
}

// AddHistory appends history entries to a contact.
func (r *Repository) AddHistory(contactID uint, entries ...entities.History) error {
	return addHistory(r.db, contactID, entries)
}

func addHistory(tx *gorm.DB, contactID uint, entries []entities.History) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	for i := range entries {
		if entries[i].ContactID == 0 {
			entries[i].ContactID = contactID
		}
		if entries[i].ChangedAt.IsZero() {
			entries[i].ChangedAt = now
		}
	}
	return tx.Create(&entries).Error
}

// History returns the change log of a contact, newest first.
func (r *Repository) History(contactID uint) ([]entities.History, error) {
	var entries []entities.History
	err := r.db.Where("contact_id = ?", contactID).
		Order("changed_at DESC, id DESC").
		Find(&entries).Error
	return entries, err
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(id uint, active bool) error {
	return r.db.Model(&entities.Contact{}).Where("id = ?", id).Update("is_active", active).Error
}

// Delete removes a contact and its history permanently.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("contact_id = ?", id).Delete(&entities.History{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Contact{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteAll removes every contact and history entry.
func (r *Repository) DeleteAll() (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.History{}).Error; err != nil {
			return err
		}
		result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entities.Contact{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// ClampPerPage keeps a page size inside [MinPerPage, MaxPerPage].
func ClampPerPage(perPage int) int {
	if perPage < MinPerPage {
		return MinPerPage
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

// List returns one page of contacts. A page beyond the last one falls back
// to page 1. Students and retired staff are hidden unless the filters ask
// for them.
func (r *Repository) List(q entities.ContactQuery) (*entities.ContactPage, error) {
	perPage := ClampPerPage(q.PerPage)
	page := q.Page
	if page < 1 {
		page = 1
	}

	query := r.filtered(q)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	totalPages := 1
	if total > 0 {
		totalPages = int((total-1)/int64(perPage)) + 1
	}
	if page > totalPages {
		page = 1
	}

	var contacts []entities.Contact
	err := query.Session(&gorm.Session{}).
		Order("last_name ASC, first_name ASC, id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	result := &entities.ContactPage{
		Contacts:   contacts,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		matches, err := r.historyMatches(term, q)
		if err != nil {
			return nil, err
		}
		result.HistoryMatches = matches
	}

	return result, nil
}

func (r *Repository) filtered(q entities.ContactQuery) *gorm.DB {
	query := r.db.Model(&entities.Contact{}).Where("is_active = ?", !q.ShowDeleted)

	f := q.Filters
	if f.HasPIN {
		query = query.Where("pin IS NOT NULL AND pin != ''")
	}
	if f.HasMAC {
		query = query.Where("mac_address IS NOT NULL AND mac_address != ''")
	}
	if f.PhoneModel != "" {
		query = query.Where("phone_model = ?", f.PhoneModel)
	}
	if f.Department != "" {
		query = query.Where("department = ?", f.Department)
	}
	if !f.ShowStudent {
		query = query.Where("COALESCE(title, '') != ?", entities.AffiliationStudent)
	}
	if !f.ShowRetired {
		query = query.Where("COALESCE(title, '') != ?", entities.AffiliationRetired)
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR "+
				"LOWER(phone) LIKE ? OR LOWER(uid) LIKE ? OR LOWER(department) LIKE ? OR "+
				"LOWER(title) LIKE ? OR LOWER(phone_model) LIKE ? OR LOWER(mac_address) LIKE ? OR "+
				"LOWER(pin) LIKE ? OR LOWER(notes) LIKE ?",
			like, like, like, like, like, like, like, like, like, like, like,
		)
	}
	return query
}

// historyMatches finds contacts whose past values match term but whose
// current values do not.
func (r *Repository) historyMatches(term string, q entities.ContactQuery) ([]entities.Contact, error) {
	like := "%" + strings.ToLower(term) + "%"

	current := r.filtered(q).Select("contacts.id")

	var contacts []entities.Contact
	err := r.db.Model(&entities.Contact{}).
		Distinct("contacts.*").
		Joins("JOIN contact_history ON contact_history.contact_id = contacts.id").
		Where("LOWER(contact_history.old_value) LIKE ? OR LOWER(contact_history.new_value) LIKE ?", like, like).
		Where("contacts.id NOT IN (?)", current).
		Order("contacts.last_name ASC").
		Find(&contacts).Error
	return contacts, err
}

// PhoneModels returns the distinct non-empty phone models.
func (r *Repository) PhoneModels() ([]string, error) {
	return r.distinct("phone_model")
}

// Departments returns the distinct non-empty departments.
func (r *Repository) Departments() ([]string, error) {
	return r.distinct("department")
}

func (r *Repository) distinct(column string) ([]string, error) {
	var values []string
	err := r.db.Model(&entities.Contact{}).
		Where(column+" IS NOT NULL AND "+column+" != ''").
		Distinct().
		Order(column).
		Pluck(column, &values).Error
	return values, err
}

// Active returns every active contact ordered by name.
func (r *Repository) Active() ([]entities.Contact, error) {
	var contacts []entities.Contact
	err := r.db.Where("is_active = ?", true).
		Order("last_name ASC, first_name ASC").
		Find(&contacts).Error
	return contacts, err
}

// Conflicts returns contacts currently flagged with an unresolved conflict.
func (r *Repository) Conflicts() ([]entities.Contact, error) {
	var contacts []entities.Contact
	err := r.db.Where("has_conflict = ?", true).Order("id").Find(&contacts).Error
	return contacts, err
}

func (r *Repository) Stats() (entities.ContactStats, error) {
	var stats entities.ContactStats
	model := func() *gorm.DB { return r.db.Model(&entities.Contact{}) }

	if err := model().Count(&stats.Total).Error; err != nil {
		return stats, err
	}
	if err := model().Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return stats, err
	}
	if err := model().Where("source = ?", entities.ContactSourceLDAP).Count(&stats.FromLDAP).Error; err != nil {
		return stats, err
	}
	if err := model().Where("has_conflict = ?", true).Count(&stats.Conflict).Error; err != nil {
		return stats, err
	}
	return stats, nil
}
