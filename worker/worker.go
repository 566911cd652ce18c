package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"jobdispatch-backend/models"
	"jobdispatch-backend/services"
	"jobdispatch-backend/utils/logger"

	"github.com/robfig/cron"
)

const (
	TaskReconcile    = "reconcile-capacity"
	TaskTokenCleanup = "token-cleanup"

	defaultReconcileSchedule = "0 */15 * * * *"
	tokenCleanupSchedule     = "0 */10 * * * *"
	taskTimeout              = 5 * time.Minute
)

// CapacityReconciler recounts technician workloads
type CapacityReconciler interface {
	ReconcileCapacity(ctx context.Context) (*services.ReconcileReport, error)
}

// TokenJanitor drops expired entries from the revoked token list
type TokenJanitor interface {
	CleanupExpiredTokens() int
}

// Worker runs the periodic maintenance tasks on a cron schedule
type Worker struct {
	config     *models.Config
	logger     logger.Logger
	cron       *cron.Cron
	reconciler CapacityReconciler
	tokens     TokenJanitor
	lock       *RunLock
	status     *StatusTracker

	reconcileSchedule string

	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	inFlight sync.WaitGroup
}

func NewWorker(cfg *models.Config, log logger.Logger, reconciler CapacityReconciler, tokens TokenJanitor, guard services.ActionGuard) (*Worker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("capacity reconciler cannot be nil")
	}

	schedule := cfg.ReconcileSchedule
	if schedule == "" {
		schedule = defaultReconcileSchedule
	}
	if _, err := cron.Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		config:            cfg,
		logger:            log,
		cron:              cron.New(),
		reconciler:        reconciler,
		tokens:            tokens,
		lock:              NewRunLock(guard),
		status:            NewStatusTracker(),
		reconcileSchedule: schedule,
		ctx:               ctx,
		cancel:            cancel,
	}, nil
}

// Start schedules the tasks. With ReconcileOnStartup a reconciliation
// pass also runs right away in the background.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker is already running")
	}
	select {
	case <-w.ctx.Done():
		return fmt.Errorf("worker context is cancelled, cannot start")
	default:
	}

	if err := w.cron.AddFunc(w.reconcileSchedule, w.reconcileJob); err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}
	w.status.Register(TaskReconcile, w.reconcileSchedule)

	if w.tokens != nil {
		if err := w.cron.AddFunc(tokenCleanupSchedule, w.tokenCleanupJob); err != nil {
			return fmt.Errorf("failed to add token cleanup job: %w", err)
		}
		w.status.Register(TaskTokenCleanup, tokenCleanupSchedule)
	}

	w.cron.Start()
	w.running = true
	w.logger.Infof("Maintenance worker started (reconcile schedule: %s)", w.reconcileSchedule)

	if w.config.ReconcileOnStartup {
		w.inFlight.Add(1)
		go func() {
			defer w.inFlight.Done()
			w.reconcileJob()
		}()
	}
	return nil
}

// Stop halts the scheduler and waits for a startup pass to return
func (w *Worker) Stop() error {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	w.cancel()
	if wasRunning {
		w.cron.Stop()
	}
	w.inFlight.Wait()
	w.logger.Info("Maintenance worker stopped")
	return nil
}

func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) Status() *StatusTracker {
	return w.status
}

func (w *Worker) reconcileJob() {
	ctx, cancel := context.WithTimeout(w.ctx, taskTimeout)
	defer cancel()
	if _, err := w.RunReconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Errorf("Capacity reconciliation failed: %v", err)
	}
}

// RunReconcile performs one reconciliation pass unless another pass holds
// the lock, in which case it returns a nil report.
func (w *Worker) RunReconcile(ctx context.Context) (report *services.ReconcileReport, err error) {
	release, held, err := w.lock.TryAcquire(ctx, TaskReconcile)
	if err != nil {
		return nil, err
	}
	if !held {
		w.logger.Info("Capacity reconciliation already running elsewhere, skipping")
		w.status.Skipped(TaskReconcile)
		return nil, nil
	}
	defer release()

	w.status.Started(TaskReconcile)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconciliation panicked: %v", r)
		}
		w.status.Finished(TaskReconcile, reconcileResult(report), err)
	}()

	report, err = w.reconciler.ReconcileCapacity(ctx)
	if err != nil {
		return report, err
	}
	w.logger.WithFields(map[string]interface{}{
		"checked":   report.Checked,
		"corrected": report.Corrected,
		"skipped":   report.Skipped,
	}).Info("Capacity reconciliation finished")
	return report, nil
}

func reconcileResult(report *services.ReconcileReport) map[string]interface{} {
	if report == nil {
		return nil
	}
	return map[string]interface{}{
		"checked":   report.Checked,
		"corrected": report.Corrected,
		"skipped":   report.Skipped,
	}
}

func (w *Worker) tokenCleanupJob() {
	w.RunTokenCleanup()
}

// RunTokenCleanup drops expired revoked tokens. The list is per process so
// no lock is taken.
func (w *Worker) RunTokenCleanup() int {
	if w.tokens == nil {
		return 0
	}
	w.status.Started(TaskTokenCleanup)
	removed := w.tokens.CleanupExpiredTokens()
	w.status.Finished(TaskTokenCleanup, map[string]interface{}{"removed": removed}, nil)
	if removed > 0 {
		w.logger.Debugf("Removed %d expired revoked tokens", removed)
	}
	return removed
}
