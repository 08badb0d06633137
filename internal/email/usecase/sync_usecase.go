package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	accountrepo "mailsync-backend/internal/account/repository"
	"mailsync-backend/internal/credential"
	"mailsync-backend/internal/email/attachment"
	emaildomain "mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/fetcher"
	"mailsync-backend/internal/email/normalize"
	"mailsync-backend/internal/email/repository"
	"mailsync-backend/internal/email/thread"

	"github.com/google/uuid"
)

const (
	connectAttempts = 3
	runAttempts     = 3
)

type emailSyncUsecase struct {
	accountRepo accountrepo.AccountRepository
	messageRepo repository.MessageRepository
	syncRunRepo repository.SyncRunRepository

	credentials credential.Provider
	fetchers    map[string]fetcher.Fetcher
	normalizer  *normalize.Normalizer
	attachments *attachment.Processor
	threads     *thread.Resolver

	registry  *runRegistry
	batchSize int
	retryBase time.Duration
	ioTimeout time.Duration
	logger    *slog.Logger
}

// NewEmailSyncUsecase wires the sync orchestrator. fetchers maps a
// provider kind ("imap", "gmail") to its transport.
func NewEmailSyncUsecase(
	accountRepo accountrepo.AccountRepository,
	messageRepo repository.MessageRepository,
	syncRunRepo repository.SyncRunRepository,
	credentials credential.Provider,
	fetchers map[string]fetcher.Fetcher,
	normalizer *normalize.Normalizer,
	attachments *attachment.Processor,
	threads *thread.Resolver,
	batchSize int,
	retryBase time.Duration,
	ioTimeout time.Duration,
	logger *slog.Logger,
) EmailSyncUsecase {
	if batchSize <= 0 {
		batchSize = 100
	}
	if retryBase <= 0 {
		retryBase = 2 * time.Second
	}
	return &emailSyncUsecase{
		accountRepo: accountRepo,
		messageRepo: messageRepo,
		syncRunRepo: syncRunRepo,
		credentials: credentials,
		fetchers:    fetchers,
		normalizer:  normalizer,
		attachments: attachments,
		threads:     threads,
		registry:    newRunRegistry(),
		batchSize:   batchSize,
		retryBase:   retryBase,
		ioTimeout:   ioTimeout,
		logger:      logger.With("component", "sync"),
	}
}

func (u *emailSyncUsecase) SyncAccount(ctx context.Context, accountID string, forceFull bool) (*emaildomain.SyncRun, error) {
	if !u.registry.TryAcquire(accountID) {
		return nil, ErrSyncInProgress
	}
	defer u.registry.Release(accountID)

	account, err := u.accountRepo.FindByID(accountID)
	if err != nil {
		return nil, fmt.Errorf("unable to load account: %w", err)
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	// An explicitly forced sync may run even for disabled accounts.
	if (account.Status == accountdomain.StatusDisabled || !account.SyncEnabled) && !forceFull {
		return nil, ErrAccountDisabled
	}

	full := forceFull || !account.FullSyncCompleted
	run := &emaildomain.SyncRun{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Mode:      syncMode(full),
		Status:    emaildomain.SyncRunRunning,
		Folders:   strings.Join(u.scopes(account), ","),
		StartedAt: time.Now().UTC(),
	}
	if err := u.syncRunRepo.Create(run); err != nil {
		return nil, fmt.Errorf("unable to record sync run: %w", err)
	}

	logger := u.logger.With("account", account.EmailAddress, "run", run.ID, "mode", run.Mode)
	logger.Info("sync started")

	runErr := u.runWithRetries(ctx, logger, account, run, full)
	u.finalize(logger, account, run, runErr)

	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

// runWithRetries executes the run body up to runAttempts times with
// doubling delays. Permanent credential failures and context
// cancellation are never retried.
func (u *emailSyncUsecase) runWithRetries(ctx context.Context, logger *slog.Logger, account *accountdomain.Account, run *emaildomain.SyncRun, full bool) error {
	var lastErr error
	for attempt := 1; attempt <= runAttempts; attempt++ {
		if attempt > 1 {
			logger.Warn("retrying sync run", "attempt", attempt, "error", lastErr)
			if err := sleepBackoff(ctx, u.retryBase, attempt-1); err != nil {
				return err
			}
		}

		lastErr = u.attemptRun(ctx, logger, account, run, full)
		if lastErr == nil {
			return nil
		}
		if credential.IsPermanent(lastErr) || errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}
	return fmt.Errorf("sync failed after %d attempts: %w", runAttempts, lastErr)
}

func (u *emailSyncUsecase) attemptRun(ctx context.Context, logger *slog.Logger, account *accountdomain.Account, run *emaildomain.SyncRun, full bool) error {
	if u.ioTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.ioTimeout)
		defer cancel()
	}

	cred, err := u.credentials.GetCredential(ctx, account)
	if err != nil {
		return err
	}

	f, ok := u.fetchers[account.Provider]
	if !ok {
		return &credential.PermanentError{Reason: fmt.Sprintf("no transport for provider %q", account.Provider)}
	}

	session, err := u.openSession(ctx, logger, f, account, cred)
	if err != nil {
		return err
	}
	defer session.Close()

	for _, scope := range u.scopes(account) {
		cursor := u.cursorFor(account, scope)
		if full {
			cursor = ""
		}

		newCursor, err := session.FetchFolder(ctx, scope, cursor, full, u.batchSize, u.applyMessage(logger, account, run))
		if errors.Is(err, fetcher.ErrCursorExpired) {
			// The stored checkpoint no longer resolves; fall back to a full
			// fetch within the same run.
			logger.Warn("checkpoint expired, falling back to full sync", "folder", scope)
			run.Mode = emaildomain.SyncModeFull
			newCursor, err = session.FetchFolder(ctx, scope, "", true, u.batchSize, u.applyMessage(logger, account, run))
		}
		if err != nil {
			return fmt.Errorf("sync of %q failed: %w", scope, err)
		}

		// Advance the checkpoint only after every fetched message has been
		// applied to storage.
		u.setCursor(account, scope, newCursor)
	}
	return nil
}

func (u *emailSyncUsecase) openSession(ctx context.Context, logger *slog.Logger, f fetcher.Fetcher, account *accountdomain.Account, cred *credential.Credential) (fetcher.Session, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if attempt > 1 {
			logger.Warn("retrying connection", "attempt", attempt, "error", lastErr)
			if err := sleepBackoff(ctx, u.retryBase, attempt-1); err != nil {
				return nil, err
			}
		}
		session, err := f.Open(ctx, account, cred)
		if err == nil {
			return session, nil
		}
		lastErr = err
		if credential.IsPermanent(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("connection failed after %d attempts: %w", connectAttempts, lastErr)
}

// applyMessage returns the per-message callback: normalize, upsert by
// (account, provider message id), resolve the thread, store the row,
// then record attachments and recount the thread.
func (u *emailSyncUsecase) applyMessage(logger *slog.Logger, account *accountdomain.Account, run *emaildomain.SyncRun) func(*fetcher.RawMessage) error {
	return func(raw *fetcher.RawMessage) error {
		msg, err := u.normalizer.Normalize(raw, account.ID)
		if err != nil {
			// Malformed messages are skipped, never fatal for the batch.
			logger.Warn("skipping malformed message", "provider_id", raw.ProviderID, "error", err)
			return nil
		}

		existing, err := u.messageRepo.FindByProviderID(account.ID, msg.ProviderMessageID)
		if err != nil {
			return fmt.Errorf("unable to look up message: %w", err)
		}

		if existing != nil {
			return u.updateExisting(logger, existing, msg, run)
		}

		records, hasAttachments := u.attachments.Collect(msg, raw.Parts)
		msg.HasAttachments = hasAttachments

		resolved, err := u.threads.Resolve(msg)
		if err != nil {
			return fmt.Errorf("unable to resolve thread: %w", err)
		}
		msg.ThreadID = resolved.ID

		// The message row is the commit point: attachment rows and thread
		// counters follow only once it exists, so a retried batch can
		// neither double-count a thread nor orphan attachments.
		if err := u.messageRepo.Create(msg); err != nil {
			return fmt.Errorf("unable to store message: %w", err)
		}
		run.NewMessages++

		if err := u.attachments.Store(records); err != nil {
			return fmt.Errorf("unable to record attachments: %w", err)
		}
		if err := u.threads.Recount(resolved); err != nil {
			return fmt.Errorf("unable to recount thread: %w", err)
		}
		return nil
	}
}

// updateExisting refreshes the mutable provider-side state of an already
// stored message. Immutable content is left untouched so re-syncs are
// idempotent.
func (u *emailSyncUsecase) updateExisting(logger *slog.Logger, existing, incoming *emaildomain.Message, run *emaildomain.SyncRun) error {
	changed := false
	readChanged := false

	if existing.IsRead != incoming.IsRead {
		existing.IsRead = incoming.IsRead
		changed = true
		readChanged = true
	}
	if existing.IsStarred != incoming.IsStarred {
		existing.IsStarred = incoming.IsStarred
		changed = true
	}
	if incoming.Folder != "" && existing.Folder != incoming.Folder {
		existing.Folder = incoming.Folder
		changed = true
	}

	if !changed {
		return nil
	}
	if err := u.messageRepo.Update(existing); err != nil {
		return fmt.Errorf("unable to update message: %w", err)
	}
	run.UpdatedMessages++

	if readChanged && existing.ThreadID != "" {
		t, err := u.threads.RecountByID(existing.ThreadID)
		if err != nil {
			logger.Warn("unable to recount thread", "thread", existing.ThreadID, "error", err)
		} else if t == nil {
			logger.Warn("message references missing thread", "thread", existing.ThreadID)
		}
	}
	return nil
}

func (u *emailSyncUsecase) finalize(logger *slog.Logger, account *accountdomain.Account, run *emaildomain.SyncRun, runErr error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Checkpoint = u.checkpointSummary(account)

	switch {
	case runErr == nil:
		run.Status = emaildomain.SyncRunSuccess
		account.Status = accountdomain.StatusActive
		account.LastError = ""
		account.LastSyncAt = &now
		account.TotalMessagesSynced += run.NewMessages
		if run.Mode == emaildomain.SyncModeFull {
			account.FullSyncCompleted = true
		}
		logger.Info("sync finished", "new", run.NewMessages, "updated", run.UpdatedMessages)
	case errors.Is(runErr, context.Canceled):
		// A shutdown is not an account fault: close the run, leave the
		// account's health and last-sync state untouched.
		run.Status = emaildomain.SyncRunError
		run.Error = runErr.Error()
		logger.Warn("sync canceled", "new", run.NewMessages, "updated", run.UpdatedMessages)
	default:
		run.Status = emaildomain.SyncRunError
		run.Error = runErr.Error()
		account.Status = accountdomain.StatusError
		account.LastError = runErr.Error()
		logger.Error("sync failed", "error", runErr, "new", run.NewMessages, "updated", run.UpdatedMessages)
	}

	if err := u.syncRunRepo.Update(run); err != nil {
		logger.Error("unable to finalize sync run", "error", err)
	}
	if err := u.accountRepo.Update(account); err != nil {
		logger.Error("unable to update account after sync", "error", err)
	}
}

// scopes returns the fetch scopes for the account: watched folders for
// IMAP, one whole-mailbox scope for Gmail.
func (u *emailSyncUsecase) scopes(account *accountdomain.Account) []string {
	if account.Provider == accountdomain.ProviderGmail {
		return []string{""}
	}
	return account.WatchedFolders()
}

func (u *emailSyncUsecase) cursorFor(account *accountdomain.Account, scope string) string {
	if account.Provider == accountdomain.ProviderGmail {
		return account.HistoryCursor
	}
	return account.FolderCursor(scope)
}

func (u *emailSyncUsecase) setCursor(account *accountdomain.Account, scope, cursor string) {
	if cursor == "" {
		return
	}
	if account.Provider == accountdomain.ProviderGmail {
		account.HistoryCursor = cursor
		return
	}
	account.SetFolderCursor(scope, cursor)
}

func (u *emailSyncUsecase) checkpointSummary(account *accountdomain.Account) string {
	if account.Provider == accountdomain.ProviderGmail {
		return account.HistoryCursor
	}
	return account.FolderCursors
}

func syncMode(full bool) string {
	if full {
		return emaildomain.SyncModeFull
	}
	return emaildomain.SyncModeIncremental
}
