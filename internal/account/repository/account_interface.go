package repository

import (
	accountdomain "mailsync-backend/internal/account/domain"
)

// AccountRepository defines persistence operations for mail accounts.
// Accounts are created by account setup; the sync engine only reads and
// updates health/checkpoint fields.
type AccountRepository interface {
	Create(account *accountdomain.Account) error
	FindByID(id string) (*accountdomain.Account, error)
	FindByEmail(address string) (*accountdomain.Account, error)
	// ListSyncable returns accounts with sync enabled and status active or
	// error. Due-time filtering happens in the scheduler.
	ListSyncable() ([]*accountdomain.Account, error)
	ListAll() ([]*accountdomain.Account, error)
	Update(account *accountdomain.Account) error
}
