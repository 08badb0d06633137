package domain

import "time"

// Sync modes.
const (
	SyncModeFull        = "full"
	SyncModeIncremental = "incremental"
)

// SyncRun statuses.
const (
	SyncRunRunning = "running"
	SyncRunSuccess = "success"
	SyncRunError   = "error"
)

// SyncRun logs one attempted sync of one account. Append-only; pruned by
// housekeeping after the retention window.
type SyncRun struct {
	ID        string `json:"id" gorm:"primaryKey"`
	AccountID string `json:"account_id" gorm:"index;not null"`
	Mode      string `json:"mode"`
	Status    string `json:"status" gorm:"index"`

	NewMessages     int `json:"new_messages"`
	UpdatedMessages int `json:"updated_messages"`
	DeletedMessages int `json:"deleted_messages"`

	Folders    string `json:"folders,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"`
	Error      string `json:"error,omitempty"`

	StartedAt  time.Time  `json:"started_at" gorm:"index"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
