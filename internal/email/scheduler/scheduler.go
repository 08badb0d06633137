package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	accountrepo "mailsync-backend/internal/account/repository"
	emaildomain "mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/repository"
	"mailsync-backend/internal/email/usecase"
)

// Summary reports one scheduler pass over the due accounts.
type Summary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Scheduler periodically selects due accounts and syncs them through a
// bounded worker pool. A housekeeping pass prunes old sync runs and
// pauses persistently failing accounts.
type Scheduler struct {
	accountRepo accountrepo.AccountRepository
	syncRunRepo repository.SyncRunRepository
	syncUsecase usecase.EmailSyncUsecase

	interval  time.Duration
	retention time.Duration
	sem       chan struct{}
	logger    *slog.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewScheduler(
	accountRepo accountrepo.AccountRepository,
	syncRunRepo repository.SyncRunRepository,
	syncUsecase usecase.EmailSyncUsecase,
	interval time.Duration,
	maxConcurrent int,
	retention time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &Scheduler{
		accountRepo: accountRepo,
		syncRunRepo: syncRunRepo,
		syncUsecase: syncUsecase,
		interval:    interval,
		retention:   retention,
		sem:         make(chan struct{}, maxConcurrent),
		logger:      logger.With("component", "scheduler"),
		stopChan:    make(chan struct{}),
	}
}

// Start launches the scheduling loop. It returns immediately; Stop
// blocks until in-flight syncs finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
	s.logger.Info("scheduler started", "interval", s.interval, "workers", cap(s.sem))
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	housekeeping := time.NewTicker(24 * time.Hour)
	defer housekeeping.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SyncAllDue(ctx)
		case <-housekeeping.C:
			s.Housekeeping(ctx)
		}
	}
}

// SyncAllDue syncs every syncable account whose next sync time has
// passed, bounded by the worker pool.
func (s *Scheduler) SyncAllDue(ctx context.Context) Summary {
	accounts, err := s.accountRepo.ListSyncable()
	if err != nil {
		s.logger.Error("unable to list accounts", "error", err)
		return Summary{}
	}

	now := time.Now().UTC()
	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for _, account := range accounts {
		if !account.Due(now) {
			continue
		}

		select {
		case s.sem <- struct{}{}:
		case <-ctx.Done():
			return summary
		case <-s.stopChan:
			return summary
		}

		wg.Add(1)
		summary.Processed++
		go func(accountID string) {
			defer wg.Done()
			defer func() { <-s.sem }()

			_, err := s.syncUsecase.SyncAccount(ctx, accountID, false)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Succeeded++
			case errors.Is(err, usecase.ErrSyncInProgress):
				summary.Skipped++
			default:
				summary.Failed++
			}
		}(account.ID)
	}

	wg.Wait()
	if summary.Processed > 0 {
		s.logger.Info("scheduler pass finished",
			"processed", summary.Processed,
			"succeeded", summary.Succeeded,
			"failed", summary.Failed,
			"skipped", summary.Skipped)
	}
	return summary
}

// TriggerNow syncs one account immediately, bypassing the due check but
// still respecting the worker pool and single-flight guarantees.
func (s *Scheduler) TriggerNow(ctx context.Context, accountID string, forceFull bool) (*emaildomain.SyncRun, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.syncUsecase.SyncAccount(ctx, accountID, forceFull)
}
