package repository

import (
	emaildomain "mailsync-backend/internal/email/domain"
)

// AttachmentRepository defines persistence operations for attachment
// metadata. Records are immutable apart from download tracking.
type AttachmentRepository interface {
	Create(attachment *emaildomain.Attachment) error
	ListByMessage(messageID string) ([]*emaildomain.Attachment, error)
	// ListByFingerprint supports advisory duplicate detection.
	ListByFingerprint(accountID, fingerprint string) ([]*emaildomain.Attachment, error)
	MarkDownloaded(id string) error
}
