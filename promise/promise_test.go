package promise

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPromise(t *testing.T) {
	type data struct {
		value int
	}
	testCases := []struct {
		exec    func(resolve func(data data), reject func(err error))
		wantVal int
		wantErr string
	}{
		{
			exec: func(resolve func(data data), _ func(err error)) {
				resolve(data{value: 10})
			},
			wantVal: 10,
		},
		{
			exec: func(_ func(data data), reject func(err error)) {
				reject(errors.New("reject"))
			},
			wantErr: "reject",
		},
		{
			exec: func(resolve func(data data), reject func(err error)) {
				resolve(data{value: 1})
				reject(errors.New("too late"))
				resolve(data{value: 2})
			},
			wantVal: 1,
		},
		{
			exec:    func(func(data data), func(err error)) {},
			wantVal: 0,
		},
		{
			exec: func(func(data data), func(err error)) {
				panic("boom")
			},
			wantErr: "recovered: boom",
		},
	}
	for i, tc := range testCases {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			p := New(tc.exec)
			res, err := p.Await(context.Background())
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.wantVal, res.value)
			require.True(t, p.Settled())
		})
	}
}

func TestPending(t *testing.T) {
	p := Pending[int]()
	require.False(t, p.Settled())
	select {
	case <-p.Done():
		t.Fatal("pending promise must not be done")
	default:
	}

	require.True(t, p.Resolve(42))
	require.False(t, p.Resolve(43))
	require.False(t, p.Reject(errors.New("late")))

	<-p.Done()
	res, err := p.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, res)
}

func TestAwaitContext(t *testing.T) {
	p := Pending[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// a settled promise wins over an expired context
	p.Resolve("ok")
	res, err := p.Await(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", res)
}

func TestThen(t *testing.T) {
	promise := New[int](func(resolve func(data int), _ func(err error)) {
		resolve(100)
	})
	wrapped := Then[int, string](promise, strconv.Itoa)
	res, err := wrapped.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "100", res)

	failed := New[int](func(_ func(data int), reject func(err error)) {
		reject(errors.New("origin failed"))
	})
	_, err = Then[int, string](failed, strconv.Itoa).Await(context.Background())
	require.EqualError(t, err, "origin failed")
}
