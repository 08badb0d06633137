package repository

import (
	"time"

	emaildomain "mailsync-backend/internal/email/domain"
)

// SyncRunRepository defines persistence for the append-only sync log.
type SyncRunRepository interface {
	Create(run *emaildomain.SyncRun) error
	Update(run *emaildomain.SyncRun) error
	// ListRecent returns the newest runs for an account, most recent first.
	ListRecent(accountID string, limit int) ([]*emaildomain.SyncRun, error)
	LatestByAccount(accountID string) (*emaildomain.SyncRun, error)
	// DeleteOlderThan prunes runs started before cutoff and returns the
	// number of rows removed.
	DeleteOlderThan(cutoff time.Time) (int64, error)
}
