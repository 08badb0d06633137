package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	emaildomain "mailsync-backend/internal/email/domain"
	"mailsync-backend/internal/email/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts []*accountdomain.Account
}

func (f *fakeAccountRepo) Create(a *accountdomain.Account) error { return nil }

func (f *fakeAccountRepo) FindByID(id string) (*accountdomain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) FindByEmail(string) (*accountdomain.Account, error) { return nil, nil }

func (f *fakeAccountRepo) ListSyncable() ([]*accountdomain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*accountdomain.Account
	for _, a := range f.accounts {
		if a.Syncable() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) ListAll() ([]*accountdomain.Account, error) {
	return f.ListSyncable()
}

func (f *fakeAccountRepo) Update(a *accountdomain.Account) error { return nil }

type fakeSyncRunRepo struct {
	runs          map[string][]*emaildomain.SyncRun
	deletedBefore *time.Time
}

func (f *fakeSyncRunRepo) Create(*emaildomain.SyncRun) error { return nil }
func (f *fakeSyncRunRepo) Update(*emaildomain.SyncRun) error { return nil }

func (f *fakeSyncRunRepo) ListRecent(accountID string, limit int) ([]*emaildomain.SyncRun, error) {
	runs := f.runs[accountID]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (f *fakeSyncRunRepo) LatestByAccount(accountID string) (*emaildomain.SyncRun, error) {
	runs := f.runs[accountID]
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

func (f *fakeSyncRunRepo) DeleteOlderThan(cutoff time.Time) (int64, error) {
	f.deletedBefore = &cutoff
	return 3, nil
}

type fakeSyncUsecase struct {
	mu     sync.Mutex
	synced []string
	errs   map[string]error
}

func (f *fakeSyncUsecase) SyncAccount(ctx context.Context, accountID string, forceFull bool) (*emaildomain.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synced = append(f.synced, accountID)
	if err, ok := f.errs[accountID]; ok {
		return nil, err
	}
	return &emaildomain.SyncRun{AccountID: accountID, Status: emaildomain.SyncRunSuccess}, nil
}

func newTestScheduler(accounts *fakeAccountRepo, runs *fakeSyncRunRepo, sync usecase.EmailSyncUsecase) *Scheduler {
	return NewScheduler(accounts, runs, sync, time.Minute, 2, 24*time.Hour, slog.New(slog.DiscardHandler))
}

func account(id, status string, lastSync *time.Time) *accountdomain.Account {
	return &accountdomain.Account{
		ID:            id,
		EmailAddress:  id + "@example.com",
		Provider:      accountdomain.ProviderIMAP,
		SyncEnabled:   true,
		SyncFrequency: 5 * time.Minute,
		Status:        status,
		LastSyncAt:    lastSync,
	}
}

func TestSyncAllDueSelectsDueAccounts(t *testing.T) {
	now := time.Now()
	recent := now.Add(-time.Minute)
	stale := now.Add(-time.Hour)

	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{
		account("never-synced", accountdomain.StatusActive, nil),
		account("stale", accountdomain.StatusError, &stale),
		account("fresh", accountdomain.StatusActive, &recent),
		account("paused", accountdomain.StatusPaused, &stale),
	}}
	syncer := &fakeSyncUsecase{}
	sched := newTestScheduler(accounts, &fakeSyncRunRepo{}, syncer)

	summary := sched.SyncAllDue(context.Background())

	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Succeeded)
	assert.ElementsMatch(t, []string{"never-synced", "stale"}, syncer.synced)
}

func TestSyncAllDueCountsFailuresAndSkips(t *testing.T) {
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{
		account("a", accountdomain.StatusActive, nil),
		account("b", accountdomain.StatusActive, nil),
		account("c", accountdomain.StatusActive, nil),
	}}
	syncer := &fakeSyncUsecase{errs: map[string]error{
		"b": errors.New("mailbox unreachable"),
		"c": usecase.ErrSyncInProgress,
	}}
	sched := newTestScheduler(accounts, &fakeSyncRunRepo{}, syncer)

	summary := sched.SyncAllDue(context.Background())

	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Skipped)
}

func TestTriggerNowBypassesDueCheck(t *testing.T) {
	now := time.Now()
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{
		account("fresh", accountdomain.StatusActive, &now),
	}}
	syncer := &fakeSyncUsecase{}
	sched := newTestScheduler(accounts, &fakeSyncRunRepo{}, syncer)

	run, err := sched.TriggerNow(context.Background(), "fresh", true)
	require.NoError(t, err)
	assert.Equal(t, "fresh", run.AccountID)
	assert.Equal(t, []string{"fresh"}, syncer.synced)
}

func failedRuns(n, total int) []*emaildomain.SyncRun {
	var runs []*emaildomain.SyncRun
	for i := 0; i < total; i++ {
		status := emaildomain.SyncRunSuccess
		if i < n {
			status = emaildomain.SyncRunError
		}
		runs = append(runs, &emaildomain.SyncRun{Status: status})
	}
	return runs
}

func TestHousekeepingPausesFailingAccount(t *testing.T) {
	failing := account("failing", accountdomain.StatusError, nil)
	healthy := account("healthy", accountdomain.StatusActive, nil)

	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{failing, healthy}}
	runs := &fakeSyncRunRepo{runs: map[string][]*emaildomain.SyncRun{
		"failing": failedRuns(5, 6), // 83% failed
		"healthy": failedRuns(1, 6),
	}}
	sched := newTestScheduler(accounts, runs, &fakeSyncUsecase{})

	sched.Housekeeping(context.Background())

	assert.Equal(t, accountdomain.StatusPaused, failing.Status)
	assert.NotEmpty(t, failing.LastError)
	assert.Equal(t, accountdomain.StatusActive, healthy.Status)
}

func TestHousekeepingNeedsMinimumSample(t *testing.T) {
	sparse := account("sparse", accountdomain.StatusError, nil)
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{sparse}}
	runs := &fakeSyncRunRepo{runs: map[string][]*emaildomain.SyncRun{
		"sparse": failedRuns(4, 4), // all failed, but below the sample floor
	}}
	sched := newTestScheduler(accounts, runs, &fakeSyncUsecase{})

	sched.Housekeeping(context.Background())

	assert.Equal(t, accountdomain.StatusError, sparse.Status)
}

func TestHousekeepingIgnoresRunningRuns(t *testing.T) {
	acct := account("busy", accountdomain.StatusError, nil)
	accounts := &fakeAccountRepo{accounts: []*accountdomain.Account{acct}}

	history := failedRuns(4, 4)
	history = append(history, &emaildomain.SyncRun{Status: emaildomain.SyncRunRunning})
	runs := &fakeSyncRunRepo{runs: map[string][]*emaildomain.SyncRun{"busy": history}}
	sched := newTestScheduler(accounts, runs, &fakeSyncUsecase{})

	sched.Housekeeping(context.Background())

	assert.Equal(t, accountdomain.StatusError, acct.Status, "running runs do not count toward the sample")
}

func TestHousekeepingPrunesOldRuns(t *testing.T) {
	runs := &fakeSyncRunRepo{}
	sched := newTestScheduler(&fakeAccountRepo{}, runs, &fakeSyncUsecase{})

	sched.Housekeeping(context.Background())

	require.NotNil(t, runs.deletedBefore)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), *runs.deletedBefore, time.Minute)
}
