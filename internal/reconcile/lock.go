package reconcile

import (
	"context"
	"errors"
	"fmt"
)

// LockKey is the advisory lock key held for the duration of a run.
const LockKey int64 = 0x72636e63 // "rcnc"

// ErrLocked is returned when another process is already reconciling.
var ErrLocked = errors.New("another reconcile run holds the lock")

// Locker takes a cluster-wide try-lock. *database.DB implements it.
type Locker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), ok bool, err error)
}

// ExclusiveRunner runs a Runner only while holding LockKey, so server
// replicas and the command line tool never repair at the same time.
type ExclusiveRunner struct {
	runner Runner
	locker Locker
}

// Exclusive wraps runner with the advisory lock of locker.
func Exclusive(runner Runner, locker Locker) *ExclusiveRunner {
	return &ExclusiveRunner{runner: runner, locker: locker}
}

// Run takes the lock, runs and releases it. It returns ErrLocked without
// running when the lock is held elsewhere.
func (e *ExclusiveRunner) Run(ctx context.Context, apply bool) (*Report, error) {
	unlock, ok, err := e.locker.TryAdvisoryLock(ctx, LockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to take reconcile lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer unlock()
	return e.runner.Run(ctx, apply)
}
