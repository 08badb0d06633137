package repository

import (
	emaildomain "mailsync-backend/internal/email/domain"
)

// MessageRepository defines persistence operations for canonical messages.
// (account_id, provider_message_id) is unique; Upsert-style flows check
// FindByProviderID first and update instead of re-creating.
type MessageRepository interface {
	Create(message *emaildomain.Message) error
	Update(message *emaildomain.Message) error
	FindByID(id string) (*emaildomain.Message, error)
	FindByProviderID(accountID, providerMessageID string) (*emaildomain.Message, error)
	// FindByMessageIDHeaders returns the earliest stored message of the
	// account whose RFC 5322 Message-ID is in ids.
	FindByMessageIDHeaders(accountID string, ids []string) (*emaildomain.Message, error)
	ListByThread(threadID string) ([]*emaildomain.Message, error)
	CountByThread(threadID string) (int64, error)
	CountUnreadByThread(threadID string) (int64, error)
}
