//go:build deadlock
// +build deadlock

package deadlock_test

import (
	"testing"
	"time"

	sync "github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/require"

	_ "github.com/hoylen/asyncmutex/internal/deadlock"
)

func TestDetectionEnabled(t *testing.T) {
	require.False(t, sync.Opts.Disable)
	require.Equal(t, 5*time.Minute, sync.Opts.DeadlockTimeout)
	require.NotNil(t, sync.Opts.OnPotentialDeadlock)
}
