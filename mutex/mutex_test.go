package mutex_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hoylen/asyncmutex/mutex"
	"github.com/hoylen/asyncmutex/rwlock"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMutex_Basic(t *testing.T) {
	ctx := context.Background()
	m := mutex.New()
	require.False(t, m.IsLocked())
	require.ErrorIs(t, m.Unlock(), rwlock.ErrNotLocked)

	require.NoError(t, m.Lock(ctx))
	require.True(t, m.IsLocked())
	require.False(t, m.TryLock())

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, m.Lock(timeoutCtx), context.DeadlineExceeded)
	require.Equal(t, 0, m.Waiting())

	require.NoError(t, m.Unlock())
	require.False(t, m.IsLocked())
	require.True(t, m.TryLock())
	require.NoError(t, m.Unlock())
}

func TestMutex_Counter(t *testing.T) {
	ctx := context.Background()
	m := mutex.New()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Protect(ctx, func(context.Context) error {
				// read-modify-write with a suspension point in the middle
				v := counter
				time.Sleep(time.Microsecond)
				counter = v + 1
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()
	require.Equal(t, 100, counter)
	require.False(t, m.IsLocked())
}

func TestMutex_Protect(t *testing.T) {
	ctx := context.Background()
	m := mutex.New()
	errBody := errors.New("body failed")

	res, err := mutex.Protect(ctx, m, func(context.Context) (string, error) {
		require.True(t, m.IsLocked())
		return "value", nil
	})
	require.NoError(t, err)
	require.Equal(t, "value", res)
	require.False(t, m.IsLocked())

	err = m.Protect(ctx, func(context.Context) error {
		return errBody
	})
	require.ErrorIs(t, err, errBody)
	require.False(t, m.IsLocked())
}

func TestMutex_FIFO(t *testing.T) {
	ctx := context.Background()
	m := mutex.New()
	require.NoError(t, m.Lock(ctx))

	var (
		order []int
		mtx   sync.Mutex
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, m.Protect(ctx, func(context.Context) error {
				mtx.Lock()
				order = append(order, i)
				mtx.Unlock()
				return nil
			}))
		}(i)
		require.Eventually(t, func() bool {
			return m.Waiting() == i+1
		}, time.Second, time.Millisecond)
	}

	require.NoError(t, m.Unlock())
	wg.Wait()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}
