package domain

import "time"

// Attachment download states.
const (
	AttachmentPending    = "pending"
	AttachmentDownloaded = "downloaded"
	AttachmentBlocked    = "blocked"
)

// Attachment is one file belonging to a Message. The fingerprint is
// advisory: identical content on two messages is stored twice.
type Attachment struct {
	ID          string `json:"id" gorm:"primaryKey"`
	MessageID   string `json:"message_id" gorm:"index;not null"`
	AccountID   string `json:"account_id" gorm:"index"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id,omitempty"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"fingerprint,omitempty" gorm:"index"`
	IsInline    bool   `json:"is_inline"`

	DownloadState string     `json:"download_state" gorm:"default:pending"`
	DownloadedAt  *time.Time `json:"downloaded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
