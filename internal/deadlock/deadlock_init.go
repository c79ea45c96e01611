//go:build deadlock
// +build deadlock

package deadlock

import (
	"fmt"
	"time"

	sync "github.com/sasha-s/go-deadlock"
)

func init() {
	sync.Opts.Disable = false
	sync.Opts.OnPotentialDeadlock = func() {
		fmt.Println("===========================")
		fmt.Println("POTENTIAL DEADLOCK DETECTED")
		fmt.Println("===========================")
	}
	// A lock held for a long stretch is normal here, only report real stalls.
	sync.Opts.DeadlockTimeout = 5 * time.Minute
}
