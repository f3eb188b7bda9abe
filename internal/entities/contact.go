package entities

import "time"

type ContactSource string

const (
	ContactSourceManual ContactSource = "manual"
	ContactSourceLDAP   ContactSource = "ldap"
)

// Contact is a directory entry managed by the admin tool. Contacts imported
// from LDAP carry the entry DN; manual contacts are matched against the
// directory by UID.
type Contact struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	LDAPDN       *string       `gorm:"column:ldap_dn;uniqueIndex;size:255" json:"ldap_dn,omitempty"`
	UID          *string       `gorm:"column:uid;uniqueIndex;size:100" json:"uid,omitempty"`
	FirstName    string        `gorm:"size:100" json:"first_name"`
	LastName     string        `gorm:"size:100" json:"last_name"`
	Email        string        `gorm:"size:120" json:"email"`
	Phone        string        `gorm:"size:50" json:"phone"`
	PhoneModel   string        `gorm:"size:100" json:"phone_model"`
	MACAddress   string        `gorm:"column:mac_address;size:17" json:"mac_address"`
	PIN          string        `gorm:"column:pin;size:20" json:"pin"`
	Notes        string        `gorm:"type:text" json:"notes"`
	Department   string        `gorm:"size:100" json:"department"`
	Title        string        `gorm:"size:100" json:"title"`
	Source       ContactSource `gorm:"size:20;default:manual" json:"source"`
	IsActive     bool          `gorm:"default:true;index" json:"is_active"`
	HasConflict  bool          `gorm:"default:false" json:"has_conflict"`
	ConflictWith *string       `gorm:"size:255" json:"conflict_with,omitempty"`
	LastSync     *time.Time    `json:"last_sync,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	History []History `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE" json:"history,omitempty"`
}

func (Contact) TableName() string {
	return "contacts"
}

// FullName returns "First Last", trimmed when one part is missing.
func (c *Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// UIDValue returns the UID or an empty string.
func (c *Contact) UIDValue() string {
	if c.UID == nil {
		return ""
	}
	return *c.UID
}

// DNValue returns the LDAP DN or an empty string.
func (c *Contact) DNValue() string {
	if c.LDAPDN == nil {
		return ""
	}
	return *c.LDAPDN
}

// History records a single field change on a contact.
type History struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ContactID uint      `gorm:"index;not null" json:"contact_id"`
	FieldName string    `gorm:"size:50" json:"field_name"`
	OldValue  string    `gorm:"size:255" json:"old_value"`
	NewValue  string    `gorm:"size:255" json:"new_value"`
	ChangedAt time.Time `gorm:"index" json:"changed_at"`
	ChangedBy string    `gorm:"size:100" json:"changed_by"`
}

func (History) TableName() string {
	return "contact_history"
}

// Actors written to History.ChangedBy.
const (
	ChangedBySystem     = "System"
	ChangedByLDAPImport = "LDAP Import"
	ChangedByLDAPSync   = "LDAP Sync"
	ChangedByCSVImport  = "CSV Import"
	ChangedByCUCM       = "CUCM"
)

// Special history field names.
const (
	HistoryFieldCreation = "Creation"
	HistoryFieldStatus   = "Status"
	HistoryFieldEmail    = "Email"
)

// ContactFilters narrows the contact listing.
type ContactFilters struct {
	HasPIN      bool   `json:"hasPin"`
	HasMAC      bool   `json:"hasMac"`
	PhoneModel  string `json:"phoneModel"`
	Department  string `json:"department"`
	ShowStudent bool   `json:"showStudent"`
	ShowRetired bool   `json:"showRetired"`
}

// ContactQuery is a paginated listing request.
type ContactQuery struct {
	Search      string
	ShowDeleted bool
	Filters     ContactFilters
	Page        int
	PerPage     int
}

// ContactPage is one page of a contact listing. HistoryMatches holds
// contacts that matched the search only through a past field value.
type ContactPage struct {
	Contacts       []Contact `json:"contacts"`
	HistoryMatches []Contact `json:"history_matches,omitempty"`
	Total          int64     `json:"total"`
	Page           int       `json:"page"`
	PerPage        int       `json:"per_page"`
	TotalPages     int       `json:"total_pages"`
}

// ContactStats holds the dashboard counters.
type ContactStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	FromLDAP int64 `json:"from_ldap"`
	Conflict int64 `json:"conflicts"`
}

// Affiliation values used to hide groups of contacts by default.
const (
	AffiliationStudent = "student"
	AffiliationRetired = "retired"
	AffiliationAlum    = "alum"
)
