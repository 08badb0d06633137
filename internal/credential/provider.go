package credential

import (
	"context"
	"errors"
	"fmt"

	accountdomain "mailsync-backend/internal/account/domain"

	"golang.org/x/oauth2"
)

// Credential is a usable secret for one account: a decrypted password for
// folder-protocol accounts or a live token source for API accounts.
type Credential struct {
	Username    string
	Password    string
	TokenSource oauth2.TokenSource
}

// PermanentError signals that no valid credential can be obtained and no
// refresh path exists. The orchestrator must not retry on it.
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent credential failure: %s", e.Reason)
}

// IsPermanent reports whether err is a permanent credential failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Provider supplies valid credentials for accounts.
type Provider interface {
	GetCredential(ctx context.Context, account *accountdomain.Account) (*Credential, error)
	// Refresh forces a token refresh for an API account. Returns false when
	// the refresh path is unusable.
	Refresh(ctx context.Context, account *accountdomain.Account) bool
}
