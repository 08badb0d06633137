package repository

import (
	"time"

	emaildomain "mailsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// attachmentRepository implements AttachmentRepository interface
type attachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates a new instance of attachmentRepository
func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &attachmentRepository{
		db: db,
	}
}

func (r *attachmentRepository) Create(attachment *emaildomain.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = uuid.New().String()
	}
	if attachment.DownloadState == "" {
		attachment.DownloadState = emaildomain.AttachmentPending
	}
	attachment.CreatedAt = time.Now()
	attachment.UpdatedAt = time.Now()
	return r.db.Create(attachment).Error
}

func (r *attachmentRepository) ListByMessage(messageID string) ([]*emaildomain.Attachment, error) {
	var attachments []*emaildomain.Attachment
	err := r.db.Where("message_id = ?", messageID).Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *attachmentRepository) ListByFingerprint(accountID, fingerprint string) ([]*emaildomain.Attachment, error) {
	var attachments []*emaildomain.Attachment
	err := r.db.
		Where("account_id = ? AND fingerprint = ?", accountID, fingerprint).
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *attachmentRepository) MarkDownloaded(id string) error {
	now := time.Now()
	return r.db.Model(&emaildomain.Attachment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"download_state": emaildomain.AttachmentDownloaded,
			"downloaded_at":  &now,
			"updated_at":     now,
		}).Error
}
