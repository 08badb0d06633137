package usecase

import (
	"context"
	"errors"

	emaildomain "mailsync-backend/internal/email/domain"
)

var (
	// ErrSyncInProgress is returned when a sync for the account is already
	// running. Only one sync per account may run at a time.
	ErrSyncInProgress = errors.New("sync already in progress for account")

	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountDisabled is returned for accounts that may not be synced
	// even manually.
	ErrAccountDisabled = errors.New("account is disabled")
)

// EmailSyncUsecase runs synchronization for one account end to end:
// credentials, transport session, normalization, threading, checkpoints
// and the sync run log.
type EmailSyncUsecase interface {
	// SyncAccount performs one sync run. forceFull discards checkpoints and
	// re-walks the lookback window.
	SyncAccount(ctx context.Context, accountID string, forceFull bool) (*emaildomain.SyncRun, error)
}
