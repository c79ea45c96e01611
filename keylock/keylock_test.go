package keylock_test

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hoylen/asyncmutex/keylock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeyLock_Exclusive(t *testing.T) {
	ctx := context.Background()
	l := keylock.New()

	unlock, err := l.LockKeys(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())

	// disjoint keys do not wait
	unlockC, err := l.LockKeys(ctx, []string{"c"})
	require.NoError(t, err)
	require.NoError(t, unlockC())

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.LockKeys(timeoutCtx, []string{"c", "b"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, l.Len())

	require.NoError(t, unlock())
	require.NoError(t, unlock())
	require.Equal(t, 0, l.Len())
}

func TestKeyLock_Shared(t *testing.T) {
	ctx := context.Background()
	l := keylock.New()

	unlock1, err := l.RLockKeys(ctx, []string{"a"})
	require.NoError(t, err)
	unlock2, err := l.RLockKeys(ctx, []string{"a", "a"})
	require.NoError(t, err)

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = l.LockKeys(timeoutCtx, []string{"a"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1())
	require.NoError(t, unlock2())
	require.Equal(t, 0, l.Len())
}

func TestKeyLock_ConcurrentUnlock(t *testing.T) {
	ctx := context.Background()
	l := keylock.New()

	for i := 0; i < 20; i++ {
		unlock, err := l.RLockKeys(ctx, []string{"a", "b"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, unlock())
			}()
		}
		wg.Wait()
		require.Equal(t, 0, l.Len())

		// released exactly once, so a writer gets in
		unlockW, err := l.LockKeys(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.NoError(t, unlockW())
	}
}

func TestKeyLock_NoDeadlock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	l := keylock.New()
	keys := []string{"a", "b", "c", "d", "e"}
	counters := make(map[string]*int, len(keys))
	for _, k := range keys {
		counters[k] = new(int)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			picked := make([]string, 0, 3)
			for _, j := range rnd.Perm(len(keys))[:3] {
				picked = append(picked, keys[j])
			}
			unlock, err := l.LockKeys(ctx, picked)
			if !assert.NoError(t, err, fmt.Sprintf("keys %v", picked)) {
				return
			}
			for _, k := range picked {
				*counters[k]++
			}
			assert.NoError(t, unlock())
		}(int64(i))
	}
	wg.Wait()

	total := 0
	for _, c := range counters {
		total += *c
	}
	require.Equal(t, 150, total)
	require.Equal(t, 0, l.Len())
}
