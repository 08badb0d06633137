package usecase

import (
	"errors"
	"fmt"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	accountdto "mailsync-backend/internal/account/dto"
	"mailsync-backend/internal/account/repository"
	"mailsync-backend/pkg/crypto"

	"github.com/google/uuid"
)

var (
	ErrAccountExists   = errors.New("account already registered")
	ErrAccountNotFound = errors.New("account not found")
)

// AccountUsecase manages mailbox registrations. Sync engine state
// (checkpoints, counters, health) is owned by the sync orchestrator.
type AccountUsecase interface {
	CreateAccount(req *accountdto.CreateAccountRequest) (*accountdomain.Account, error)
	GetAccount(id string) (*accountdomain.Account, error)
	ListAccounts() ([]*accountdomain.Account, error)
	UpdateAccount(id string, req *accountdto.UpdateAccountRequest) (*accountdomain.Account, error)
}

type accountUsecase struct {
	accountRepo   repository.AccountRepository
	encryptionKey string
}

func NewAccountUsecase(accountRepo repository.AccountRepository, encryptionKey string) AccountUsecase {
	return &accountUsecase{
		accountRepo:   accountRepo,
		encryptionKey: encryptionKey,
	}
}

func (u *accountUsecase) CreateAccount(req *accountdto.CreateAccountRequest) (*accountdomain.Account, error) {
	existing, err := u.accountRepo.FindByEmail(req.EmailAddress)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAccountExists
	}

	account := &accountdomain.Account{
		ID:           uuid.New().String(),
		EmailAddress: req.EmailAddress,
		Provider:     req.Provider,
		SyncEnabled:  true,
		SyncFolders:  req.SyncFolders,
		Status:       accountdomain.StatusActive,
	}

	if req.SyncFrequency != "" {
		freq, err := time.ParseDuration(req.SyncFrequency)
		if err != nil || freq <= 0 {
			return nil, fmt.Errorf("invalid sync frequency %q", req.SyncFrequency)
		}
		account.SyncFrequency = freq
	}

	switch req.Provider {
	case accountdomain.ProviderIMAP:
		if req.IMAPServer == "" || req.IMAPPassword == "" {
			return nil, errors.New("imap accounts require server and password")
		}
		encrypted, err := crypto.Encrypt(req.IMAPPassword, u.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("unable to encrypt password: %w", err)
		}
		account.IMAPServer = req.IMAPServer
		account.IMAPPort = req.IMAPPort
		if account.IMAPPort == 0 {
			account.IMAPPort = 993
		}
		account.IMAPUsername = req.IMAPUsername
		if account.IMAPUsername == "" {
			account.IMAPUsername = req.EmailAddress
		}
		account.IMAPPassword = encrypted
	case accountdomain.ProviderGmail:
		if req.RefreshToken == "" && req.AccessToken == "" {
			return nil, errors.New("gmail accounts require oauth tokens")
		}
		account.AccessToken = req.AccessToken
		account.RefreshToken = req.RefreshToken
		account.TokenExpiry = req.TokenExpiry
	default:
		return nil, fmt.Errorf("unsupported provider %q", req.Provider)
	}

	if err := u.accountRepo.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *accountUsecase) GetAccount(id string) (*accountdomain.Account, error) {
	account, err := u.accountRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

func (u *accountUsecase) ListAccounts() ([]*accountdomain.Account, error) {
	return u.accountRepo.ListAll()
}

func (u *accountUsecase) UpdateAccount(id string, req *accountdto.UpdateAccountRequest) (*accountdomain.Account, error) {
	account, err := u.GetAccount(id)
	if err != nil {
		return nil, err
	}

	if req.SyncEnabled != nil {
		account.SyncEnabled = *req.SyncEnabled
	}
	if req.SyncFrequency != nil {
		freq, err := time.ParseDuration(*req.SyncFrequency)
		if err != nil || freq <= 0 {
			return nil, fmt.Errorf("invalid sync frequency %q", *req.SyncFrequency)
		}
		account.SyncFrequency = freq
	}
	if req.SyncFolders != nil {
		account.SyncFolders = *req.SyncFolders
	}
	if req.Status != nil {
		switch *req.Status {
		case accountdomain.StatusActive, accountdomain.StatusPaused, accountdomain.StatusDisabled:
			account.Status = *req.Status
			if *req.Status == accountdomain.StatusActive {
				account.LastError = ""
			}
		default:
			return nil, fmt.Errorf("invalid status %q", *req.Status)
		}
	}

	if err := u.accountRepo.Update(account); err != nil {
		return nil, err
	}
	return account, nil
}
