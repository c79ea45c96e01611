//go:build !deadlock
// +build !deadlock

package deadlock_test

import (
	"testing"

	sync "github.com/sasha-s/go-deadlock"
	"github.com/stretchr/testify/require"

	_ "github.com/hoylen/asyncmutex/internal/deadlock"
)

func TestDetectionDisabled(t *testing.T) {
	require.True(t, sync.Opts.Disable)
}
