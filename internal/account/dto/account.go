package dto

import (
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
)

// CreateAccountRequest registers a mailbox for synchronization. IMAP
// accounts carry server settings and a password; Gmail accounts carry
// OAuth tokens obtained by the caller's consent flow.
type CreateAccountRequest struct {
	EmailAddress string `json:"email_address" binding:"required,email"`
	Provider     string `json:"provider" binding:"required,oneof=imap gmail"`

	IMAPServer   string `json:"imap_server,omitempty"`
	IMAPPort     int    `json:"imap_port,omitempty"`
	IMAPUsername string `json:"imap_username,omitempty"`
	IMAPPassword string `json:"imap_password,omitempty"`

	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`

	SyncFrequency string `json:"sync_frequency,omitempty"`
	SyncFolders   string `json:"sync_folders,omitempty"`
}

// UpdateAccountRequest changes sync settings or re-activates a paused
// account. Nil fields are left unchanged.
type UpdateAccountRequest struct {
	SyncEnabled   *bool   `json:"sync_enabled,omitempty"`
	SyncFrequency *string `json:"sync_frequency,omitempty"`
	SyncFolders   *string `json:"sync_folders,omitempty"`
	Status        *string `json:"status,omitempty"`
}

type AccountsResponse struct {
	Accounts []*accountdomain.Account `json:"accounts"`
	Total    int                      `json:"total"`
}
