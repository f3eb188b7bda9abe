package settingsstore

import (
	"time"

	"github.com/mrlokans/phonedir/internal/entities"
)

// LDAPSyncConfig represents the effective configuration for the scheduled
// directory sync.
type LDAPSyncConfig struct {
	Enabled        bool   `json:"enabled"`
	EnabledSource  Source `json:"enabled_source"`
	Schedule       string `json:"schedule"`
	ScheduleSource Source `json:"schedule_source"`
	Description    string `json:"description"`
}

// LDAPSyncStatus represents the last sync status
type LDAPSyncStatus struct {
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	Status     string     `json:"status,omitempty"`  // "success", "failed", ""
	Message    string     `json:"message,omitempty"` // Error message or stats summary
}

func (s *SettingsStore) GetLDAPSyncConfig() LDAPSyncConfig {
	schedule := s.Get(entities.SettingKeyLDAPSyncSchedule)
	return LDAPSyncConfig{
		Enabled:        s.Bool(entities.SettingKeyLDAPSyncEnabled),
		EnabledSource:  s.Source(entities.SettingKeyLDAPSyncEnabled),
		Schedule:       schedule,
		ScheduleSource: s.Source(entities.SettingKeyLDAPSyncSchedule),
		Description:    GetCronDescription(schedule),
	}
}

func (s *SettingsStore) GetLDAPSyncStatus() LDAPSyncStatus {
	status := LDAPSyncStatus{}

	if setting, err := s.repo.GetSetting(entities.SettingKeyLDAPSyncLastAt); err == nil && setting.Value != "" {
		if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
			status.LastSyncAt = &ts
		}
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeyLDAPSyncLastStatus); err == nil {
		status.Status = setting.Value
	}
	if setting, err := s.repo.GetSetting(entities.SettingKeyLDAPSyncLastMessage); err == nil {
		status.Message = setting.Value
	}
	return status
}

func (s *SettingsStore) SetLDAPSyncStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.repo.SetSetting(entities.SettingKeyLDAPSyncLastAt, now); err != nil {
		return err
	}
	if err := s.repo.SetSetting(entities.SettingKeyLDAPSyncLastStatus, status); err != nil {
		return err
	}
	return s.repo.SetSetting(entities.SettingKeyLDAPSyncLastMessage, message)
}
