package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hoylen/asyncmutex/promise"
	"github.com/hoylen/asyncmutex/rwlock"
	"github.com/hoylen/asyncmutex/scheduler"
)

type runner struct {
	lock   *rwlock.Lock
	clock  clockwork.Clock
	logger *zap.Logger
	// sched runs the tasks cooperatively, and lock must suspend through it.
	// If nil, every task is a goroutine.
	sched *scheduler.Scheduler
}

type groupResult struct {
	Name    string
	Tasks   int
	Elapsed time.Duration
}

// run starts every task of cfg at once and waits for all of them.
// Group elapsed time is measured from the start of the workload to the
// moment its last task released the lock.
func (r *runner) run(ctx context.Context, cfg *Config) ([]groupResult, time.Duration, error) {
	start := r.clock.Now()
	ends := make([][]time.Time, len(cfg.Groups))
	for i, g := range cfg.Groups {
		ends[i] = make([]time.Time, g.Count)
	}

	var err error
	if r.sched == nil {
		err = r.runGoroutines(ctx, cfg, ends)
	} else {
		err = r.runCooperative(ctx, cfg, ends)
	}
	if err != nil {
		return nil, 0, err
	}

	results := make([]groupResult, 0, len(cfg.Groups))
	for i, g := range cfg.Groups {
		last := start
		for _, end := range ends[i] {
			if end.After(last) {
				last = end
			}
		}
		res := groupResult{Name: g.Name, Tasks: g.Count, Elapsed: last.Sub(start)}
		r.logger.Info("group finished",
			zap.String("group", g.Name),
			zap.String("kind", g.Kind),
			zap.Int("tasks", g.Count),
			zap.Duration("elapsed", res.Elapsed),
		)
		results = append(results, res)
	}
	total := r.clock.Since(start)
	r.logger.Info("workload finished", zap.Duration("elapsed", total))
	return results, total, nil
}

func (r *runner) runGoroutines(ctx context.Context, cfg *Config, ends [][]time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	for gi, group := range cfg.Groups {
		for ti := 0; ti < group.Count; ti++ {
			g.Go(func() error {
				end, err := r.task(ctx, group, r.sleep)
				ends[gi][ti] = end
				return err
			})
		}
	}
	return g.Wait()
}

func (r *runner) runCooperative(ctx context.Context, cfg *Config, ends [][]time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pause := func(ctx context.Context, d time.Duration) error {
		if d <= 0 {
			return nil
		}
		return r.sched.Sleep(ctx, d)
	}
	var tasks []*promise.Promise[struct{}]
	for gi, group := range cfg.Groups {
		for ti := 0; ti < group.Count; ti++ {
			tasks = append(tasks, r.sched.Go(ctx, func(ctx context.Context) error {
				end, err := r.task(ctx, group, pause)
				ends[gi][ti] = end
				if err != nil {
					cancel()
				}
				return err
			}))
		}
	}
	r.sched.Wait()

	var result error
	for _, p := range tasks {
		if _, err := p.Await(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// task runs one task of g and returns the time of its last release.
func (r *runner) task(ctx context.Context, g Group, pause func(context.Context, time.Duration) error) (time.Time, error) {
	if err := pause(ctx, g.StartDelay); err != nil {
		return time.Time{}, err
	}
	protect := r.lock.ProtectRead
	if g.Kind == "write" {
		protect = r.lock.ProtectWrite
	}
	for i := 0; i < g.Repeat; i++ {
		err := protect(ctx, func(ctx context.Context) error {
			return pause(ctx, g.Hold)
		})
		if err != nil {
			return time.Time{}, fmt.Errorf("group %q: %w", g.Name, err)
		}
	}
	return r.clock.Now(), nil
}

func (r *runner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-r.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
