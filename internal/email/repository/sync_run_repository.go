package repository

import (
	"errors"
	"time"

	emaildomain "mailsync-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// syncRunRepository implements SyncRunRepository interface
type syncRunRepository struct {
	db *gorm.DB
}

// NewSyncRunRepository creates a new instance of syncRunRepository
func NewSyncRunRepository(db *gorm.DB) SyncRunRepository {
	return &syncRunRepository{
		db: db,
	}
}

func (r *syncRunRepository) Create(run *emaildomain.SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	run.CreatedAt = time.Now()
	return r.db.Create(run).Error
}

func (r *syncRunRepository) Update(run *emaildomain.SyncRun) error {
	return r.db.Save(run).Error
}

func (r *syncRunRepository) ListRecent(accountID string, limit int) ([]*emaildomain.SyncRun, error) {
	var runs []*emaildomain.SyncRun
	err := r.db.
		Where("account_id = ?", accountID).
		Order("started_at desc").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *syncRunRepository) LatestByAccount(accountID string) (*emaildomain.SyncRun, error) {
	var run emaildomain.SyncRun
	err := r.db.
		Where("account_id = ?", accountID).
		Order("started_at desc").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *syncRunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("started_at < ?", cutoff).
		Delete(&emaildomain.SyncRun{})
	return result.RowsAffected, result.Error
}
