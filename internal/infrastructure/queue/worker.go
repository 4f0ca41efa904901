package queue

import (
	"context"
	"time"

	"go.uber.org/zap"

	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/pkg/common"
)

// dequeueWait bounds each BRPOP so the loop can observe context
// cancellation between jobs.
const dequeueWait = 5 * time.Second

// Handler processes one job.
type Handler func(ctx context.Context, job *ImportJob) (*pipeline.ImportedRecipe, error)

// Worker consumes jobs one at a time. Single concurrency is deliberate: the
// pipeline's model calls are the expensive part and the queue exists to
// serialize them.
type Worker struct {
	queue   *Queue
	handler Handler
	timeout time.Duration
}

// NewWorker creates a worker. timeout bounds the processing of one job.
func NewWorker(q *Queue, handler Handler, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Worker{queue: q, handler: handler, timeout: timeout}
}

// Run consumes jobs until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	common.LogInfo("worker started")
	for {
		select {
		case <-ctx.Done():
			common.LogInfo("worker stopping")
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			common.LogError("dequeue failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *ImportJob) {
	start := time.Now()
	common.LogInfo("processing job",
		zap.String("job_id", job.JobID),
		zap.String("type", string(job.Type)),
		zap.String("user_id", job.UserID),
	)

	if err := w.queue.MarkProcessing(ctx, job.JobID); err != nil {
		common.LogWarn("failed to mark job processing",
			zap.Error(err),
			zap.String("job_id", job.JobID),
		)
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	recipe, err := w.handler(jobCtx, job)
	if err != nil {
		common.LogError("job failed",
			zap.Error(err),
			zap.String("job_id", job.JobID),
			zap.Duration("elapsed", time.Since(start)),
		)
		if storeErr := w.queue.Fail(ctx, job, err); storeErr != nil {
			common.LogError("failed to store failure result",
				zap.Error(storeErr),
				zap.String("job_id", job.JobID),
			)
		}
		return
	}

	if err := w.queue.Complete(ctx, job, recipe); err != nil {
		common.LogError("failed to store result",
			zap.Error(err),
			zap.String("job_id", job.JobID),
		)
		return
	}
	common.LogInfo("job completed",
		zap.String("job_id", job.JobID),
		zap.String("title", recipe.Title),
		zap.Duration("elapsed", time.Since(start)),
	)
}
