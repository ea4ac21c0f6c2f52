package service

import "sync"

// userLocks serializes consolidation per user. Each user gets a dedicated
// mutex that is reference-counted and reclaimed once no goroutine holds or
// waits on it, so the map does not grow with the number of users ever seen.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Lock acquires the mutex for the given user, blocking while another
// goroutine holds it.
func (l *userLocks) Lock(userID string) {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &userLock{}
		l.locks[userID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
}

// Unlock releases the mutex for the given user and drops the map entry once
// the last holder or waiter is gone.
func (l *userLocks) Unlock(userID string) {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		l.mu.Unlock()
		panic("unlock of unheld user lock: " + userID)
	}
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()

	lock.mu.Unlock()
}
