package services

import "github.com/mrlokans/phonedir/internal/entities"

// contactField is an editable contact column with its history label.
type contactField struct {
	key   string
	label string
	get   func(*entities.Contact) string
	set   func(*entities.Contact, string)
}

var editableFields = []contactField{
	{"first_name", "First Name", func(c *entities.Contact) string { return c.FirstName }, func(c *entities.Contact, v string) { c.FirstName = v }},
	{"last_name", "Last Name", func(c *entities.Contact) string { return c.LastName }, func(c *entities.Contact, v string) { c.LastName = v }},
	{"email", "Email", func(c *entities.Contact) string { return c.Email }, func(c *entities.Contact, v string) { c.Email = v }},
	{"phone", "Phone", func(c *entities.Contact) string { return c.Phone }, func(c *entities.Contact, v string) { c.Phone = v }},
	{"phone_model", "Phone Model", func(c *entities.Contact) string { return c.PhoneModel }, func(c *entities.Contact, v string) { c.PhoneModel = v }},
	{"mac_address", "MAC Address", func(c *entities.Contact) string { return c.MACAddress }, func(c *entities.Contact, v string) { c.MACAddress = v }},
	{"pin", "PIN", func(c *entities.Contact) string { return c.PIN }, func(c *entities.Contact, v string) { c.PIN = v }},
	{"notes", "Notes", func(c *entities.Contact) string { return c.Notes }, func(c *entities.Contact, v string) { c.Notes = v }},
	{"department", "Department", func(c *entities.Contact) string { return c.Department }, func(c *entities.Contact, v string) { c.Department = v }},
	{"title", "Title", func(c *entities.Contact) string { return c.Title }, func(c *entities.Contact, v string) { c.Title = v }},
}

func fieldByKey(key string) contactField {
	for _, f := range editableFields {
		if f.key == key {
			return f
		}
	}
	panic("unknown contact field " + key)
}

// setField assigns value and returns the history entry for the change, or
// nil when the value is unchanged.
func setField(c *entities.Contact, key, value, changedBy string) *entities.History {
	f := fieldByKey(key)
	old := f.get(c)
	if old == value {
		return nil
	}
	f.set(c, value)
	return &entities.History{
		ContactID: c.ID,
		FieldName: f.label,
		OldValue:  old,
		NewValue:  value,
		ChangedBy: changedBy,
	}
}

// changeSet collects history entries for one save.
type changeSet []entities.History

func (cs *changeSet) set(c *entities.Contact, key, value, changedBy string) {
	if h := setField(c, key, value, changedBy); h != nil {
		*cs = append(*cs, *h)
	}
}

// fill assigns value only when the current value is empty.
func (cs *changeSet) fill(c *entities.Contact, key, value, changedBy string) {
	if value == "" || fieldByKey(key).get(c) != "" {
		return
	}
	cs.set(c, key, value, changedBy)
}
