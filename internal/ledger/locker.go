package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wallet-ledger/internal/domain/shared"
)

// ErrLockTimeout is returned when a wallet lock is not acquired in time
var ErrLockTimeout = fmt.Errorf("%w: timed out waiting for wallet lock", shared.ErrBusy)

// KeyedLocker hands out one mutex per key. Entries are created on demand and
// dropped once nobody holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates an empty locker
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// Acquire blocks until the lock for key is held, timeout elapses or ctx ends.
// The returned release func is safe to call more than once.
func (l *KeyedLocker) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.ch
				l.drop(key, entry)
			})
		}, nil
	case <-timer.C:
		l.drop(key, entry)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.drop(key, entry)
		return nil, fmt.Errorf("%w: %w", shared.ErrBusy, ctx.Err())
	}
}

func (l *KeyedLocker) drop(key string, entry *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports the number of live entries
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
