package domain

import (
	"strings"
	"time"
)

// Provider identifies the transport an account syncs over.
const (
	ProviderIMAP  = "imap"
	ProviderGmail = "gmail"
)

// Account status values. Disabled accounts are never picked up by the
// scheduler; Error accounts remain eligible for future runs.
const (
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

type Account struct {
	ID           string `json:"id" gorm:"primaryKey"`
	EmailAddress string `json:"email_address" gorm:"uniqueIndex;not null"`
	Provider     string `json:"provider" gorm:"not null"` // "imap" or "gmail"

	// IMAP transport settings
	IMAPServer   string `json:"imap_server,omitempty"`
	IMAPPort     int    `json:"imap_port,omitempty"`
	IMAPUsername string `json:"imap_username,omitempty"`
	IMAPPassword string `json:"-"` // encrypted at rest

	// Gmail OAuth tokens
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`

	SyncEnabled   bool          `json:"sync_enabled" gorm:"index"`
	SyncFrequency time.Duration `json:"sync_frequency"`
	// Comma-separated watched folders for IMAP accounts; empty means INBOX.
	SyncFolders string `json:"sync_folders,omitempty"`

	// Checkpoints. FolderCursors holds "folder:uid" pairs for IMAP;
	// HistoryCursor holds the Gmail history id.
	FolderCursors     string `json:"-"`
	HistoryCursor     string `json:"-"`
	FullSyncCompleted bool   `json:"full_sync_completed"`

	TotalMessagesSynced int        `json:"total_messages_synced"`
	Status              string     `json:"status" gorm:"index;default:active"`
	LastError           string     `json:"last_error,omitempty"`
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchedFolders returns the folders to sync for an IMAP account.
func (a *Account) WatchedFolders() []string {
	if strings.TrimSpace(a.SyncFolders) == "" {
		return []string{"INBOX"}
	}
	var folders []string
	for _, f := range strings.Split(a.SyncFolders, ",") {
		if f = strings.TrimSpace(f); f != "" {
			folders = append(folders, f)
		}
	}
	if len(folders) == 0 {
		return []string{"INBOX"}
	}
	return folders
}

// Syncable reports whether the scheduler may select this account.
func (a *Account) Syncable() bool {
	if !a.SyncEnabled {
		return false
	}
	return a.Status == StatusActive || a.Status == StatusError
}

// Due reports whether the account's next scheduled sync time has passed.
func (a *Account) Due(now time.Time) bool {
	if a.LastSyncAt == nil {
		return true
	}
	freq := a.SyncFrequency
	if freq <= 0 {
		freq = 5 * time.Minute
	}
	return !now.Before(a.LastSyncAt.Add(freq))
}

// FolderCursor returns the stored UID checkpoint for a folder.
func (a *Account) FolderCursor(folder string) string {
	for _, pair := range strings.Split(a.FolderCursors, ";") {
		if name, cursor, ok := strings.Cut(pair, ":"); ok && name == folder {
			return cursor
		}
	}
	return ""
}

// SetFolderCursor stores the UID checkpoint for a folder.
func (a *Account) SetFolderCursor(folder, cursor string) {
	var pairs []string
	replaced := false
	for _, pair := range strings.Split(a.FolderCursors, ";") {
		name, _, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		if name == folder {
			pairs = append(pairs, folder+":"+cursor)
			replaced = true
		} else {
			pairs = append(pairs, pair)
		}
	}
	if !replaced {
		pairs = append(pairs, folder+":"+cursor)
	}
	a.FolderCursors = strings.Join(pairs, ";")
}
