// Package lock serializes work on a single race across goroutines or processes.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a race lock could not be acquired in time
var ErrLockTimeout = errors.New("timed out waiting for race lock")

// RaceLocker acquires an exclusive lock on a race. The returned release func
// must be called exactly once.
type RaceLocker interface {
	Lock(ctx context.Context, raceID string) (release func(), err error)
}

// LocalLocker is a keyed mutex for a single process
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*raceLock
}

type raceLock struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker creates a new in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*raceLock)}
}

// Lock blocks until the race is free or ctx is done
func (l *LocalLocker) Lock(ctx context.Context, raceID string) (func(), error) {
	l.mu.Lock()
	rl, ok := l.locks[raceID]
	if !ok {
		rl = &raceLock{ch: make(chan struct{}, 1)}
		l.locks[raceID] = rl
	}
	rl.waiters++
	l.mu.Unlock()

	select {
	case rl.ch <- struct{}{}:
	case <-ctx.Done():
		l.forget(raceID, rl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-rl.ch
			l.forget(raceID, rl)
		})
	}, nil
}

func (l *LocalLocker) forget(raceID string, rl *raceLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.waiters--
	if rl.waiters == 0 {
		delete(l.locks, raceID)
	}
}
