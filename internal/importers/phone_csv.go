package importers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/phonedir/internal/cucm"
)

var (
	ErrEmptyCSV       = errors.New("no CSV data provided")
	ErrMissingColumns = errors.New("CSV must have username, mac, and pin columns")
)

// PhoneCSVRow is one username with the MAC address and PIN to assign.
// MAC is normalized to AA:BB:CC:DD:EE:FF, or empty when missing or invalid.
type PhoneCSVRow struct {
	Line     int
	Username string
	MAC      string
	RawMAC   string
	PIN      string
}

// ParsePhoneCSV parses a username,mac,pin file. Rows without a username
// and repeated usernames are skipped; the first occurrence wins.
// Returns the parsed rows, per-line problems, and a fatal error if the file
// cannot be read at all.
func ParsePhoneCSV(r io.Reader, delimiter rune) ([]PhoneCSVRow, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if delimiter != 0 {
		reader.Comma = delimiter
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, h := range []string{"username", "mac", "pin"} {
		if _, ok := headerIndex[h]; !ok {
			return nil, nil, ErrMissingColumns
		}
	}

	var rows []PhoneCSVRow
	var problems []string
	seen := make(map[string]bool)
	lineNum := 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("Line %d: %v", lineNum, err))
			continue
		}

		row := PhoneCSVRow{
			Line:     lineNum,
			Username: getCSVValue(record, headerIndex, "username"),
			RawMAC:   getCSVValue(record, headerIndex, "mac"),
			PIN:      getCSVValue(record, headerIndex, "pin"),
		}
		if row.Username == "" || seen[row.Username] {
			continue
		}
		seen[row.Username] = true

		if row.RawMAC != "" {
			row.MAC = cucm.NormalizeMAC(row.RawMAC)
			if row.MAC == "" {
				problems = append(problems, fmt.Sprintf("Line %d: invalid MAC address %q ignored", lineNum, row.RawMAC))
			}
		}
		rows = append(rows, row)
	}

	return rows, problems, nil
}

func getCSVValue(record []string, headerIndex map[string]int, header string) string {
	if idx, ok := headerIndex[header]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
