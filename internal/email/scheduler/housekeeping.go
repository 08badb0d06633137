package scheduler

import (
	"context"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	emaildomain "mailsync-backend/internal/email/domain"
)

const (
	// healthWindow is how many recent runs the failure check inspects.
	healthWindow = 10
	// healthMinRuns is the minimum sample before auto-pausing.
	healthMinRuns = 5
	// healthErrorRate pauses an account when at least this share of the
	// inspected runs failed.
	healthErrorRate = 0.8
)

// Housekeeping prunes sync runs past the retention window and pauses
// accounts whose recent runs are overwhelmingly failing. Paused accounts
// stay out of scheduling until re-activated.
func (s *Scheduler) Housekeeping(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)
	deleted, err := s.syncRunRepo.DeleteOlderThan(cutoff)
	if err != nil {
		s.logger.Error("unable to prune sync runs", "error", err)
	} else if deleted > 0 {
		s.logger.Info("pruned sync runs", "deleted", deleted, "cutoff", cutoff)
	}

	accounts, err := s.accountRepo.ListSyncable()
	if err != nil {
		s.logger.Error("unable to list accounts for health check", "error", err)
		return
	}

	for _, account := range accounts {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if s.shouldPause(account.ID) {
			account.Status = accountdomain.StatusPaused
			account.LastError = "paused automatically: repeated sync failures"
			if err := s.accountRepo.Update(account); err != nil {
				s.logger.Error("unable to pause account", "account", account.EmailAddress, "error", err)
				continue
			}
			s.logger.Warn("account paused after repeated failures", "account", account.EmailAddress)
		}
	}
}

func (s *Scheduler) shouldPause(accountID string) bool {
	runs, err := s.syncRunRepo.ListRecent(accountID, healthWindow)
	if err != nil {
		s.logger.Error("unable to read run history", "account", accountID, "error", err)
		return false
	}

	finished := 0
	failed := 0
	for _, run := range runs {
		if run.Status == emaildomain.SyncRunRunning {
			continue
		}
		finished++
		if run.Status == emaildomain.SyncRunError {
			failed++
		}
	}
	if finished < healthMinRuns {
		return false
	}
	return float64(failed)/float64(finished) >= healthErrorRate
}
