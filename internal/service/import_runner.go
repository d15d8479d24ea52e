package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
	"github.com/noah-isme/trs-ewc-import/pkg/jobs"
)

const (
	importJobType = "ewc-wales-import"
	// ImportLockKey guards the pickup area across replicas.
	ImportLockKey = "trs:ewc-wales-import:lock"
)

type pendingFileProcessor interface {
	ProcessPendingFiles(ctx context.Context) (*models.ImportRunSummary, error)
}

type runLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type jobQueue interface {
	TryEnqueue(job jobs.Job) error
	Busy() bool
}

// ImportRunStatus is what operators see about the runner.
type ImportRunStatus struct {
	Running     bool                     `json:"running"`
	LastTrigger string                   `json:"lastTrigger,omitempty"`
	LastRun     *models.ImportRunSummary `json:"lastRun,omitempty"`
	LastError   string                   `json:"lastError,omitempty"`
	Stats       models.ImportStats       `json:"stats"`
}

// ImportRunner serialises import runs from the scheduler and from operators.
type ImportRunner struct {
	processor pendingFileProcessor
	lock      runLock
	lockTTL   time.Duration
	metrics   *MetricsService
	logger    *zap.Logger
	queue     jobQueue
	running   atomic.Bool

	mu          sync.RWMutex
	lastTrigger string
	lastRun     *models.ImportRunSummary
	lastError   string
}

// NewImportRunner constructs the runner. Attach a queue with UseQueue before triggering runs.
func NewImportRunner(processor pendingFileProcessor, lock runLock, lockTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *ImportRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Hour
	}
	return &ImportRunner{processor: processor, lock: lock, lockTTL: lockTTL, metrics: metrics, logger: logger}
}

// UseQueue sets the queue that Trigger enqueues onto.
func (r *ImportRunner) UseQueue(queue jobQueue) {
	r.queue = queue
}

// HandleJob is the jobs.Handler for queued runs.
func (r *ImportRunner) HandleJob(ctx context.Context, job jobs.Job) error {
	trigger, _ := job.Payload.(string)
	_, err := r.Run(ctx, trigger)
	if errors.Is(err, appErrors.ErrImportInProgress) {
		return nil
	}
	return err
}

// Trigger enqueues a run and returns its job id without waiting for it.
func (r *ImportRunner) Trigger(trigger string) (string, error) {
	if r.queue == nil {
		return "", appErrors.Clone(appErrors.ErrServiceUnavailable, "import queue is not running")
	}
	if r.queue.Busy() || r.running.Load() {
		return "", appErrors.ErrImportInProgress
	}
	job := jobs.Job{ID: uuid.NewString(), Type: importJobType, Payload: trigger}
	if err := r.queue.TryEnqueue(job); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			return "", appErrors.ErrImportInProgress
		}
		return "", appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to enqueue import run")
	}
	r.logger.Info("import run enqueued", zap.String("job_id", job.ID), zap.String("trigger", trigger))
	return job.ID, nil
}

// Run processes the pickup area once. Only one run is active per process, and
// the distributed lock extends that to every replica.
func (r *ImportRunner) Run(ctx context.Context, trigger string) (*models.ImportRunSummary, error) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Info("import run skipped, a run is already active in this process", zap.String("trigger", trigger))
		return nil, appErrors.ErrImportInProgress
	}
	defer r.running.Store(false)

	token, ok, err := r.lock.Acquire(ctx, ImportLockKey, r.lockTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to acquire import lock")
	}
	if !ok {
		r.logger.Info("import run skipped, another instance holds the lock", zap.String("trigger", trigger))
		return nil, appErrors.ErrImportInProgress
	}
	defer func() {
		if err := r.lock.Release(context.Background(), ImportLockKey, token); err != nil {
			r.logger.Warn("failed to release import lock", zap.Error(err))
		}
	}()

	summary, runErr := r.processor.ProcessPendingFiles(ctx)

	r.mu.Lock()
	r.lastTrigger = trigger
	r.lastRun = summary
	r.lastError = ""
	if runErr != nil {
		r.lastError = runErr.Error()
	}
	r.mu.Unlock()

	if runErr != nil {
		r.logger.Error("import run failed", zap.String("trigger", trigger), zap.Error(runErr))
		return summary, runErr
	}
	r.logger.Info("import run finished", zap.String("trigger", trigger), zap.Int("files", len(summary.Files)))
	return summary, nil
}

// Status reports the last run and the in-process counters.
func (r *ImportRunner) Status() ImportRunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := ImportRunStatus{
		LastTrigger: r.lastTrigger,
		LastRun:     r.lastRun,
		LastError:   r.lastError,
		Stats:       r.metrics.Snapshot(),
	}
	status.Running = r.running.Load()
	if r.queue != nil && r.queue.Busy() {
		status.Running = true
	}
	return status
}
