package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ndstyle/mindflow-backend/internal/logger"
	"github.com/ndstyle/mindflow-backend/internal/repos"
	"github.com/ndstyle/mindflow-backend/internal/types"
)

const (
	maxJobAttempts    = 3
	claimInterval     = 1 * time.Second
	retryDelay        = 30 * time.Second
	staleRunning      = 2 * time.Minute
	heartbeatInterval = 30 * time.Second
)

// Worker claims runnable job rows and dispatches them to registered
// handlers. The job table is the durable record: queued and stale-running
// rows survive a process restart and get re-claimed, so execution is
// at-least-once and handlers must tolerate re-delivery.
type Worker struct {
	log         *logger.Logger
	jobRepo     repos.JobRunRepo
	docRepo     repos.DocumentRepo
	registry    *Registry
	concurrency int
}

func NewWorker(baseLog *logger.Logger, jobRepo repos.JobRunRepo, docRepo repos.DocumentRepo, registry *Registry, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		log:         baseLog.With("component", "JobWorker"),
		jobRepo:     jobRepo,
		docRepo:     docRepo,
		registry:    registry,
		concurrency: concurrency,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(claimInterval)
		defer ticker.Stop()
		g := &errgroup.Group{}
		g.SetLimit(w.concurrency)
		for {
			select {
			case <-ctx.Done():
				_ = g.Wait()
				return
			case <-ticker.C:
				job, err := w.jobRepo.ClaimNextRunnable(ctx, nil, maxJobAttempts, retryDelay, staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if job == nil {
					continue
				}
				claimed := job
				g.Go(func() error {
					w.runOne(ctx, claimed)
					return nil
				})
			}
		}
	}()
}

func (w *Worker) runOne(ctx context.Context, job *types.JobRun) {
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		w.finishFailed(ctx, job, fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	// keep the heartbeat fresh while the handler runs; a handler that
	// legitimately outlives staleRunning must not be re-claimed as dead
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.keepAlive(hbCtx, job.ID, heartbeatInterval)

	var runErr error
	func() {
		defer stopHeartbeat()
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		runErr = h.Run(ctx, job)
	}()

	if runErr != nil {
		w.finishFailed(ctx, job, runErr)
		return
	}
	if err := w.jobRepo.MarkSucceeded(ctx, nil, job.ID); err != nil {
		w.log.Error("MarkSucceeded failed", "job_id", job.ID, "error", err)
	}
}

func (w *Worker) keepAlive(ctx context.Context, jobID uuid.UUID, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.jobRepo.Heartbeat(ctx, nil, jobID); err != nil {
				w.log.Warn("Heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// finishFailed records the failure; once attempts are exhausted the owning
// document (if any) is pushed to failed so pollers are not left hanging on
// processing forever.
func (w *Worker) finishFailed(ctx context.Context, job *types.JobRun, cause error) {
	if err := w.jobRepo.MarkFailed(ctx, nil, job.ID, cause); err != nil {
		w.log.Error("MarkFailed failed", "job_id", job.ID, "error", err)
	}
	if job.Attempts < maxJobAttempts || job.EntityID == nil {
		return
	}
	moved, err := w.docRepo.MarkTerminal(ctx, nil, *job.EntityID, types.DocumentStatusFailed)
	if err != nil {
		w.log.Error("Failed to mark document failed after exhausted attempts",
			"job_id", job.ID, "document_id", *job.EntityID, "error", err)
		return
	}
	if moved {
		w.log.Error("Document failed after exhausted job attempts",
			"job_id", job.ID, "document_id", *job.EntityID, "error", cause)
	}
}
