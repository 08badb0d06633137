package credential

import (
	"context"
	"log/slog"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	accountrepo "mailsync-backend/internal/account/repository"
	"mailsync-backend/pkg/crypto"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Service implements Provider for both transport families: AES-encrypted
// IMAP passwords and Google OAuth tokens with persisted refresh.
type Service struct {
	clientID      string
	clientSecret  string
	encryptionKey string
	accountRepo   accountrepo.AccountRepository
	logger        *slog.Logger
}

func NewService(clientID, clientSecret, encryptionKey string, accountRepo accountrepo.AccountRepository, logger *slog.Logger) *Service {
	return &Service{
		clientID:      clientID,
		clientSecret:  clientSecret,
		encryptionKey: encryptionKey,
		accountRepo:   accountRepo,
		logger:        logger.With("component", "credential"),
	}
}

func (s *Service) GetCredential(ctx context.Context, account *accountdomain.Account) (*Credential, error) {
	switch account.Provider {
	case accountdomain.ProviderIMAP:
		return s.imapCredential(account)
	case accountdomain.ProviderGmail:
		return s.oauthCredential(ctx, account)
	default:
		return nil, &PermanentError{Reason: "unknown provider " + account.Provider}
	}
}

func (s *Service) imapCredential(account *accountdomain.Account) (*Credential, error) {
	if account.IMAPPassword == "" {
		return nil, &PermanentError{Reason: "no stored password"}
	}
	password, err := crypto.Decrypt(account.IMAPPassword, s.encryptionKey)
	if err != nil {
		// An undecryptable secret never becomes valid on retry.
		return nil, &PermanentError{Reason: "cannot decrypt stored password: " + err.Error()}
	}
	username := account.IMAPUsername
	if username == "" {
		username = account.EmailAddress
	}
	return &Credential{Username: username, Password: password}, nil
}

func (s *Service) oauthCredential(ctx context.Context, account *accountdomain.Account) (*Credential, error) {
	if account.AccessToken == "" && account.RefreshToken == "" {
		return nil, &PermanentError{Reason: "account has no OAuth tokens"}
	}
	if account.RefreshToken == "" && !account.TokenExpiry.IsZero() && account.TokenExpiry.Before(time.Now()) {
		return nil, &PermanentError{Reason: "access token expired and no refresh token stored"}
	}

	token := &oauth2.Token{
		AccessToken:  account.AccessToken,
		RefreshToken: account.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       account.TokenExpiry,
	}
	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	src := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: s.makeTokenUpdateCallback(account.ID),
	}
	return &Credential{TokenSource: src}, nil
}

func (s *Service) Refresh(ctx context.Context, account *accountdomain.Account) bool {
	cred, err := s.oauthCredential(ctx, account)
	if err != nil {
		return false
	}
	if _, err := cred.TokenSource.Token(); err != nil {
		s.logger.Warn("token refresh failed", "account", account.ID, "error", err)
		return false
	}
	return true
}

// makeTokenUpdateCallback persists refreshed tokens back onto the account
// row so later runs start from the newest token.
func (s *Service) makeTokenUpdateCallback(accountID string) func(*oauth2.Token) error {
	return func(token *oauth2.Token) error {
		account, err := s.accountRepo.FindByID(accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return nil
		}
		account.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			account.RefreshToken = token.RefreshToken
		}
		account.TokenExpiry = token.Expiry
		return s.accountRepo.Update(account)
	}
}

// notifyTokenSource wraps an oauth2.TokenSource and fires a callback
// whenever the underlying source hands back a new access token.
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback func(*oauth2.Token) error
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			slog.Warn("failed to persist refreshed token", "error", err)
		}
	}
	return t, nil
}
