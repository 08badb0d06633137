package repository

import (
	"errors"
	"time"

	emaildomain "mailsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// threadRepository implements ThreadRepository interface
type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository creates a new instance of threadRepository
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{
		db: db,
	}
}

func (r *threadRepository) Create(thread *emaildomain.Thread) error {
	if thread.ID == "" {
		thread.ID = uuid.New().String()
	}
	thread.CreatedAt = time.Now()
	thread.UpdatedAt = time.Now()
	return r.db.Create(thread).Error
}

func (r *threadRepository) Update(thread *emaildomain.Thread) error {
	thread.UpdatedAt = time.Now()
	return r.db.Save(thread).Error
}

func (r *threadRepository) FindByID(id string) (*emaildomain.Thread, error) {
	var thread emaildomain.Thread
	err := r.db.Where("id = ?", id).First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) FindBySubjectSince(accountID, normalizedSubject string, since time.Time) (*emaildomain.Thread, error) {
	var thread emaildomain.Thread
	err := r.db.
		Where("account_id = ? AND normalized_subject = ? AND last_activity_at >= ?", accountID, normalizedSubject, since).
		Order("created_at asc").
		First(&thread).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) ListByAccount(accountID string, limit, offset int) ([]*emaildomain.Thread, error) {
	var threads []*emaildomain.Thread
	err := r.db.
		Where("account_id = ?", accountID).
		Order("last_activity_at desc").
		Limit(limit).
		Offset(offset).
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}
