package worker

import (
	"context"

	"jobdispatch-backend/services"
)

const workerLockScope = "worker"

// RunLock keeps a scheduled task from overlapping itself, across replicas
// when the guard is Redis backed
type RunLock struct {
	guard services.ActionGuard
}

func NewRunLock(guard services.ActionGuard) *RunLock {
	if guard == nil {
		guard = services.NewLocalActionGuard()
	}
	return &RunLock{guard: guard}
}

// TryAcquire returns held=false without error when another run owns the task
func (l *RunLock) TryAcquire(ctx context.Context, task string) (release func(), held bool, err error) {
	release, err = l.guard.Acquire(ctx, task, workerLockScope)
	if err != nil {
		if services.KindOf(err) == services.KindConflict {
			return nil, false, nil
		}
		return nil, false, err
	}
	return release, true, nil
}
