package entities

import "time"

type SyncType string

const (
	SyncTypeImportBatch SyncType = "import_batch"
	SyncTypeLDAPSync    SyncType = "ldap_sync"
)

type SyncStatus string

const (
	SyncStatusQueued    SyncStatus = "queued"
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncProgress is the persisted progress of a long-running run, keyed by
// RunID. Batch imports map Succeeded/Conflicts/Failed onto the per-item
// outcome counters.
type SyncProgress struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	RunID       string     `gorm:"size:36;uniqueIndex" json:"run_id"`
	SyncType    SyncType   `gorm:"size:50;index" json:"sync_type"`
	Status      SyncStatus `gorm:"size:20" json:"status"`
	TotalItems  int        `json:"total_items"`
	Processed   int        `json:"processed"`
	Succeeded   int        `json:"succeeded"`
	Conflicts   int        `json:"conflicts"`
	Failed      int        `json:"failed"`
	CurrentItem string     `gorm:"size:512" json:"current_item,omitempty"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (SyncProgress) TableName() string {
	return "sync_progress"
}

// BatchProgress maps the stored counters back onto the batch accumulator.
func (p SyncProgress) BatchProgress() BatchProgress {
	return BatchProgress{
		Total:         p.TotalItems,
		Completed:     p.Processed,
		SuccessCount:  p.Succeeded,
		ConflictCount: p.Conflicts,
		ErrorCount:    p.Failed,
	}
}

// Finished reports whether the run reached a terminal status.
func (p SyncProgress) Finished() bool {
	return p.Status == SyncStatusCompleted || p.Status == SyncStatusFailed
}
