package repository

import (
	"errors"
	"time"

	emaildomain "mailsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// messageRepository implements MessageRepository interface
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

func (r *messageRepository) Create(message *emaildomain.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()
	message.UpdatedAt = time.Now()
	return r.db.Create(message).Error
}

func (r *messageRepository) Update(message *emaildomain.Message) error {
	message.UpdatedAt = time.Now()
	return r.db.Save(message).Error
}

func (r *messageRepository) FindByID(id string) (*emaildomain.Message, error) {
	var message emaildomain.Message
	err := r.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) FindByProviderID(accountID, providerMessageID string) (*emaildomain.Message, error) {
	var message emaildomain.Message
	err := r.db.
		Where("account_id = ? AND provider_message_id = ?", accountID, providerMessageID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) FindByMessageIDHeaders(accountID string, ids []string) (*emaildomain.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var message emaildomain.Message
	err := r.db.
		Where("account_id = ? AND message_id_header IN ?", accountID, ids).
		Order("created_at asc").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByThread(threadID string) ([]*emaildomain.Message, error) {
	var messages []*emaildomain.Message
	err := r.db.
		Where("thread_id = ?", threadID).
		Order("received_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) CountByThread(threadID string) (int64, error) {
	var count int64
	err := r.db.Model(&emaildomain.Message{}).
		Where("thread_id = ?", threadID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) CountUnreadByThread(threadID string) (int64, error) {
	var count int64
	err := r.db.Model(&emaildomain.Message{}).
		Where("thread_id = ? AND is_read = ?", threadID, false).
		Count(&count).Error
	return count, err
}
