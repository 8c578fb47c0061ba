package hierarchy

import (
	"sync"
)

// AccountLocker serializes hierarchy mutations per account. Reparenting and
// cascading deletes read-then-write multi-node subtrees and must not
// interleave with another mutation on the same account; accounts are fully
// independent, so locks are keyed by account id.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewAccountLocker creates an empty locker.
func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the account's mutex and returns its unlock function.
// Mutexes are created on first use and kept for the process lifetime; the
// set of active accounts per instance is small enough not to reap.
func (l *AccountLocker) Lock(accountID string) func() {
	l.mu.Lock()
	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
