package services

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/entities"
	"github.com/mrlokans/phonedir/internal/importers"
)

var ErrNoImportData = errors.New("no import data found")

// PhoneUpdate is a pending MAC/PIN assignment kept between preview and
// confirmation. Empty MAC or PIN means "leave unchanged".
type PhoneUpdate struct {
	Username  string `json:"username"`
	MAC       string `json:"mac"`
	PIN       string `json:"pin"`
	ContactID uint   `json:"contact_id"`
}

type PhonePreviewEntry struct {
	Username   string `json:"username"`
	CurrentMAC string `json:"current_mac"`
	NewMAC     string `json:"new_mac"`
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
	Status     string `json:"status"`
}

const (
	PreviewMatch   = "Match"
	PreviewNoMatch = "No match"
)

type PhonePreview struct {
	Total      int                 `json:"total"`
	Matches    int                 `json:"matches"`
	NonMatches int                 `json:"nonmatches"`
	Entries    []PhonePreviewEntry `json:"entries"`
	Problems   []string            `json:"problems,omitempty"`
}

// PreviewPhoneImport matches a username,mac,pin CSV against contact UIDs.
// The returned updates are what ConfirmPhoneImport applies.
func (s *ContactService) PreviewPhoneImport(r io.Reader, delimiter rune) (*PhonePreview, []PhoneUpdate, error) {
	rows, problems, err := importers.ParsePhoneCSV(r, delimiter)
	if err != nil {
		return nil, nil, err
	}

	uids := make([]string, 0, len(rows))
	for _, row := range rows {
		uids = append(uids, row.Username)
	}
	matched, err := s.repo.GetByUIDs(uids)
	if err != nil {
		return nil, nil, err
	}

	preview := &PhonePreview{Entries: make([]PhonePreviewEntry, 0, len(rows)), Problems: problems}
	updates := make([]PhoneUpdate, 0, len(rows))
	for _, row := range rows {
		entry := PhonePreviewEntry{Username: row.Username, NewMAC: row.MAC, NewPIN: row.PIN, Status: PreviewNoMatch}
		update := PhoneUpdate{Username: row.Username, MAC: row.MAC, PIN: row.PIN}
		if c, ok := matched[row.Username]; ok {
			entry.CurrentMAC = c.MACAddress
			entry.CurrentPIN = c.PIN
			entry.Status = PreviewMatch
			update.ContactID = c.ID
			preview.Matches++
		} else {
			preview.NonMatches++
		}
		preview.Entries = append(preview.Entries, entry)
		updates = append(updates, update)
	}
	preview.Total = len(preview.Entries)
	return preview, updates, nil
}

// ConfirmPhoneImport applies previewed updates to matched contacts and
// returns how many contacts changed.
func (s *ContactService) ConfirmPhoneImport(updates []PhoneUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, ErrNoImportData
	}

	updated := 0
	for _, u := range updates {
		if u.ContactID == 0 {
			continue
		}
		contact, err := s.repo.GetByID(u.ContactID)
		if err != nil {
			s.logger.Warn("previewed contact disappeared", zap.Uint("id", u.ContactID), zap.Error(err))
			continue
		}

		var changes changeSet
		if u.MAC != "" {
			changes.set(contact, "mac_address", u.MAC, entities.ChangedByCSVImport)
		}
		if u.PIN != "" {
			changes.set(contact, "pin", u.PIN, entities.ChangedByCSVImport)
		}
		if len(changes) == 0 {
			continue
		}
		if err := s.repo.SaveWithHistory(contact, changes...); err != nil {
			return updated, err
		}
		updated++
	}

	s.logger.Info("phone import applied", zap.Int("updated", updated), zap.Int("rows", len(updates)))
	return updated, nil
}
