package repository

import (
	"errors"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *accountdomain.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return r.db.Create(account).Error
}

func (r *accountRepository) FindByID(id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(address string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("email_address = ?", address).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) ListSyncable() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.
		Where("sync_enabled = ?", true).
		Where("status IN ?", []string{accountdomain.StatusActive, accountdomain.StatusError}).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListAll() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.Order("created_at asc").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) Update(account *accountdomain.Account) error {
	account.UpdatedAt = time.Now()
	return r.db.Save(account).Error
}
