// Package queue implements the redis-backed import job queue: a single list
// feeding one worker at a time, plus per-job result records and an in-flight
// guard that stops a user from importing the same URL twice concurrently.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"recipe-importer/internal/core/pipeline"
	"recipe-importer/internal/pkg/common"
)

// Redis key layout.
const (
	queueKey       = "import-recipe:queue"
	resultKeyFmt   = "import-recipe:result:%s"
	inflightKeyFmt = "import-recipe:inflight:%s:%s"
)

// Job statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ImportJob is one queued import request.
type ImportJob struct {
	JobID    string             `json:"jobId"`
	UserID   string             `json:"userId"`
	Username string             `json:"username,omitempty"`
	Type     pipeline.InputType `json:"type"`
	URL      string             `json:"url,omitempty"`
	Text     string             `json:"text,omitempty"`
	Images   []string           `json:"images,omitempty"`
}

// Result is the stored outcome of a job.
type Result struct {
	Status string                   `json:"status"`
	Recipe *pipeline.ImportedRecipe `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

// NewClient connects to redis from a URL and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Queue is the redis-backed job queue and result store.
type Queue struct {
	client      *redis.Client
	resultTTL   time.Duration
	inflightTTL time.Duration
}

// NewQueue wraps a redis client as a job queue.
func NewQueue(client *redis.Client, resultTTL, inflightTTL time.Duration) *Queue {
	return &Queue{
		client:      client,
		resultTTL:   resultTTL,
		inflightTTL: inflightTTL,
	}
}

// Enqueue pushes a job and writes its pending result record. For URL jobs it
// first claims the in-flight guard; a second enqueue of the same URL by the
// same user fails with ErrDuplicateImport until the first completes or the
// guard expires.
func (q *Queue) Enqueue(ctx context.Context, job *ImportJob) error {
	if job.Type == pipeline.InputURL {
		claimed, err := q.client.SetNX(ctx, q.inflightKey(job), job.JobID, q.inflightTTL).Result()
		if err != nil {
			return fmt.Errorf("claim inflight guard: %w", err)
		}
		if !claimed {
			return common.ErrDuplicateImport
		}
	}

	if err := q.setResult(ctx, job.JobID, &Result{Status: StatusPending}); err != nil {
		q.releaseInflight(ctx, job)
		return err
	}

	payload, err := common.ToJSON(job)
	if err != nil {
		q.releaseInflight(ctx, job)
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, queueKey, payload).Err(); err != nil {
		q.releaseInflight(ctx, job)
		return fmt.Errorf("push job: %w", err)
	}

	common.LogInfo("job enqueued",
		zap.String("job_id", job.JobID),
		zap.String("type", string(job.Type)),
		zap.String("user_id", job.UserID),
	)
	return nil
}

// Dequeue blocks for up to timeout waiting for the next job. Returns nil
// without error when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*ImportJob, error) {
	vals, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop job: %w", err)
	}
	// BRPop returns [key, value].
	if len(vals) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length %d", len(vals))
	}

	var job ImportJob
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// MarkProcessing records that a worker picked the job up.
func (q *Queue) MarkProcessing(ctx context.Context, jobID string) error {
	return q.setResult(ctx, jobID, &Result{Status: StatusProcessing})
}

// Complete stores a successful result and releases the in-flight guard.
func (q *Queue) Complete(ctx context.Context, job *ImportJob, recipe *pipeline.ImportedRecipe) error {
	q.releaseInflight(ctx, job)
	return q.setResult(ctx, job.JobID, &Result{
		Status: StatusCompleted,
		Recipe: recipe,
	})
}

// Fail stores a failure result and releases the in-flight guard.
func (q *Queue) Fail(ctx context.Context, job *ImportJob, cause error) error {
	q.releaseInflight(ctx, job)
	return q.setResult(ctx, job.JobID, &Result{
		Status: StatusFailed,
		Error:  cause.Error(),
	})
}

// GetResult returns the result record for a job, or nil when the job is
// unknown or its record has expired.
func (q *Queue) GetResult(ctx context.Context, jobID string) (*Result, error) {
	raw, err := q.client.Get(ctx, fmt.Sprintf(resultKeyFmt, jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &result, nil
}

// Depth reports the number of queued jobs.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, queueKey).Result()
}

func (q *Queue) setResult(ctx context.Context, jobID string, result *Result) error {
	payload, err := common.ToJSON(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := fmt.Sprintf(resultKeyFmt, jobID)
	if err := q.client.Set(ctx, key, payload, q.resultTTL).Err(); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (q *Queue) inflightKey(job *ImportJob) string {
	return fmt.Sprintf(inflightKeyFmt, job.UserID, job.URL)
}

func (q *Queue) releaseInflight(ctx context.Context, job *ImportJob) {
	if job.Type != pipeline.InputURL {
		return
	}
	if err := q.client.Del(ctx, q.inflightKey(job)).Err(); err != nil {
		common.LogWarn("failed to release inflight guard",
			zap.Error(err),
			zap.String("job_id", job.JobID),
		)
	}
}
