package exporters

import (
	"bufio"
	"io"
	"strings"

	"github.com/mrlokans/phonedir/internal/entities"
)

const utf8BOM = "\ufeff"

// ContactsCSVHeader lists the exported columns in order.
var ContactsCSVHeader = []string{
	"First Name", "Last Name", "UID", "Email", "Phone",
	"Department", "Title", "Phone Model", "MAC Address",
	"PIN", "Notes", "Last Sync",
}

// ContactsCSVExporter writes contacts as a spreadsheet-friendly CSV: UTF-8
// with a byte order mark, every field quoted.
type ContactsCSVExporter struct {
	Delimiter  rune
	DateFormat string
}

func NewContactsCSVExporter(delimiter rune, dateFormat string) *ContactsCSVExporter {
	if delimiter == 0 {
		delimiter = ','
	}
	if dateFormat == "" {
		dateFormat = "2006-01-02 15:04"
	}
	return &ContactsCSVExporter{Delimiter: delimiter, DateFormat: dateFormat}
}

func (e *ContactsCSVExporter) Export(w io.Writer, contacts []entities.Contact) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return 0, err
	}
	if err := e.writeRecord(bw, ContactsCSVHeader); err != nil {
		return 0, err
	}

	for i := range contacts {
		c := &contacts[i]
		lastSync := ""
		if c.LastSync != nil {
			lastSync = c.LastSync.Format(e.DateFormat)
		}
		record := []string{
			c.FirstName, c.LastName, c.UIDValue(), c.Email, c.Phone,
			c.Department, c.Title, c.PhoneModel, c.MACAddress,
			c.PIN, c.Notes, lastSync,
		}
		if err := e.writeRecord(bw, record); err != nil {
			return i, err
		}
	}
	return len(contacts), bw.Flush()
}

// writeRecord quotes every field, unlike encoding/csv which only quotes
// when needed.
func (e *ContactsCSVExporter) writeRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if _, err := w.WriteRune(e.Delimiter); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}
