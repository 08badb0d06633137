package domain

import "time"

// Priority classification derived from transport headers.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
	PriorityLow    = "low"
)

// Folder classification values, in precedence order when a provider
// attaches several labels to one message.
const (
	FolderInbox    = "inbox"
	FolderSent     = "sent"
	FolderDrafts   = "drafts"
	FolderSpam     = "spam"
	FolderTrash    = "trash"
	FolderArchived = "archived"
)

// Message is the canonical record for one synced mail item.
// (AccountID, ProviderMessageID) is unique: re-fetching the same message
// updates mutable fields instead of creating a duplicate.
type Message struct {
	ID                string `json:"id" gorm:"primaryKey"`
	AccountID         string `json:"account_id" gorm:"index;uniqueIndex:idx_account_provider_msg;not null"`
	ProviderMessageID string `json:"provider_message_id" gorm:"uniqueIndex:idx_account_provider_msg;not null"`
	ThreadID          string `json:"thread_id" gorm:"index"`

	Subject  string `json:"subject"`
	From     string `json:"from"`
	FromName string `json:"from_name"`
	// Address lists are stored as comma-joined strings.
	To  string `json:"to"`
	Cc  string `json:"cc,omitempty"`
	Bcc string `json:"bcc,omitempty"`

	BodyText string `json:"body_text"`
	BodyHTML string `json:"body_html"`
	Preview  string `json:"preview"`

	MessageIDHeader string `json:"-"` // RFC 5322 Message-ID
	References      string `json:"-"` // space-joined referenced message ids
	RawHeaders      string `json:"-"`

	Folder         string    `json:"folder" gorm:"index"`
	Priority       string    `json:"priority"`
	IsRead         bool      `json:"is_read"`
	IsStarred      bool      `json:"is_starred"`
	HasAttachments bool      `json:"has_attachments"`
	Size           int64     `json:"size"`
	SentAt         time.Time `json:"sent_at"`
	ReceivedAt     time.Time `json:"received_at" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
