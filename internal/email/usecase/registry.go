package usecase

import "sync"

// runRegistry tracks accounts with a sync in flight. Acquire fails when
// the account already holds a slot, giving single-flight semantics.
type runRegistry struct {
	mu     sync.Mutex
	active map[string]bool
}

func newRunRegistry() *runRegistry {
	return &runRegistry{active: make(map[string]bool)}
}

func (r *runRegistry) TryAcquire(accountID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[accountID] {
		return false
	}
	r.active[accountID] = true
	return true
}

func (r *runRegistry) Release(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, accountID)
}
