package repository

import (
	"time"

	emaildomain "mailsync-backend/internal/email/domain"
)

// ThreadRepository defines persistence operations for conversation threads.
type ThreadRepository interface {
	Create(thread *emaildomain.Thread) error
	Update(thread *emaildomain.Thread) error
	FindByID(id string) (*emaildomain.Thread, error)
	// FindBySubjectSince returns the earliest-created thread of the account
	// with the given normalized subject whose last activity is at or after
	// since. Earliest wins so repeated lookups are stable and threads are
	// never merged.
	FindBySubjectSince(accountID, normalizedSubject string, since time.Time) (*emaildomain.Thread, error)
	ListByAccount(accountID string, limit, offset int) ([]*emaildomain.Thread, error)
}
