package dto

import (
	"time"

	emaildomain "mailsync-backend/internal/email/domain"
)

type ThreadsResponse struct {
	Threads []*emaildomain.Thread `json:"threads"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

type ThreadMessagesResponse struct {
	Thread   *emaildomain.Thread    `json:"thread"`
	Messages []*emaildomain.Message `json:"messages"`
}

type SyncRunsResponse struct {
	Runs []*emaildomain.SyncRun `json:"runs"`
}

// SyncStatusResponse summarizes an account's sync health.
type SyncStatusResponse struct {
	AccountID           string               `json:"account_id"`
	Status              string               `json:"status"`
	SyncEnabled         bool                 `json:"sync_enabled"`
	FullSyncCompleted   bool                 `json:"full_sync_completed"`
	TotalMessagesSynced int                  `json:"total_messages_synced"`
	LastSyncAt          *time.Time           `json:"last_sync_at,omitempty"`
	LastError           string               `json:"last_error,omitempty"`
	LatestRun           *emaildomain.SyncRun `json:"latest_run,omitempty"`
}

type TriggerSyncRequest struct {
	Full bool `json:"full"`
}
