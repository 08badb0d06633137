package domain

import (
	"strings"
	"time"
)

// Thread groups messages into one conversation. Aggregate counters must
// always match the messages referencing the thread.
type Thread struct {
	ID        string `json:"id" gorm:"primaryKey"`
	AccountID string `json:"account_id" gorm:"index;not null"`
	// ThreadKey is the provider message id of the first message seen.
	ThreadKey         string `json:"thread_key" gorm:"index"`
	Subject           string `json:"subject"`
	NormalizedSubject string `json:"normalized_subject" gorm:"index"`
	// Participants is a comma-joined set of addresses.
	Participants string `json:"participants"`

	MessageCount   int  `json:"message_count"`
	UnreadCount    int  `json:"unread_count"`
	HasAttachments bool `json:"has_attachments"`

	FirstMessageAt time.Time `json:"first_message_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
	LastActivityAt time.Time `json:"last_activity_at" gorm:"index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ParticipantSet returns the participant addresses as a set.
func (t *Thread) ParticipantSet() map[string]bool {
	set := make(map[string]bool)
	for _, p := range strings.Split(t.Participants, ",") {
		if p = strings.TrimSpace(p); p != "" {
			set[strings.ToLower(p)] = true
		}
	}
	return set
}

// AddParticipants extends the participant set, preserving existing order.
func (t *Thread) AddParticipants(addrs []string) {
	set := t.ParticipantSet()
	parts := []string{}
	if t.Participants != "" {
		parts = strings.Split(t.Participants, ",")
	}
	for _, a := range addrs {
		a = strings.TrimSpace(a)
		if a == "" || set[strings.ToLower(a)] {
			continue
		}
		set[strings.ToLower(a)] = true
		parts = append(parts, a)
	}
	t.Participants = strings.Join(parts, ",")
}
