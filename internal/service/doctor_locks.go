package service

import (
	"context"
	"sync"
)

// doctorLocks serializes schedule mutations per doctor. Entries are
// reference counted and removed once nobody holds or waits on them.
type doctorLocks struct {
	mu    sync.Mutex
	locks map[string]*doctorLock
}

type doctorLock struct {
	sem  chan struct{}
	refs int
}

func newDoctorLocks() *doctorLocks {
	return &doctorLocks{locks: make(map[string]*doctorLock)}
}

// acquire blocks until the doctor's lock is held or ctx is done. The
// returned release func must be called exactly once.
func (l *doctorLocks) acquire(ctx context.Context, doctorName string) (func(), error) {
	l.mu.Lock()
	dl, ok := l.locks[doctorName]
	if !ok {
		dl = &doctorLock{sem: make(chan struct{}, 1)}
		l.locks[doctorName] = dl
	}
	dl.refs++
	l.mu.Unlock()

	select {
	case dl.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(doctorName, dl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-dl.sem
			l.unref(doctorName, dl)
		})
	}, nil
}

func (l *doctorLocks) unref(doctorName string, dl *doctorLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	dl.refs--
	if dl.refs == 0 {
		delete(l.locks, doctorName)
	}
}

func (l *doctorLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
