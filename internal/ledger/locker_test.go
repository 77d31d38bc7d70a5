package ledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/domain/shared"
)

func TestKeyedLocker_MutualExclusion(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "wallet-a", time.Second)
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, locker.size())
}

func TestKeyedLocker_Timeout(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "wallet-a", time.Second)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "wallet-a", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, shared.ErrBusy)

	release()
	release()
	assert.Equal(t, 0, locker.size())
}

func TestKeyedLocker_ContextCancelled(t *testing.T) {
	locker := NewKeyedLocker()
	release, err := locker.Acquire(context.Background(), "wallet-a", time.Second)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locker.Acquire(ctx, "wallet-a", time.Second)
	assert.ErrorIs(t, err, shared.ErrBusy)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	locker := NewKeyedLocker()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "wallet-a", time.Second)
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := locker.Acquire(ctx, "wallet-b", 10*time.Millisecond)
	require.NoError(t, err)
	releaseB()
}
