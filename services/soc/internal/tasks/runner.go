package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/securepulse/securepulse/pkg/logger"
)

const (
	defaultPollTimeout = 5 * time.Second
	retryDelay         = time.Second
)

// Runner pulls jobs from a Broker and executes the handler registered under
// each job's name.
type Runner struct {
	broker      Broker
	handlers    map[string]HandlerFunc
	pollTimeout time.Duration
	now         func() time.Time
}

func NewRunner(broker Broker) *Runner {
	return &Runner{
		broker:      broker,
		handlers:    make(map[string]HandlerFunc),
		pollTimeout: defaultPollTimeout,
		now:         time.Now,
	}
}

// Register binds name to fn. Call before Run.
func (r *Runner) Register(name string, fn HandlerFunc) {
	r.handlers[name] = fn
}

// Run processes jobs until ctx is cancelled. Broker errors are logged and
// retried.
func (r *Runner) Run(ctx context.Context) error {
	logger.Info("Task runner started", "handlers", len(r.handlers))
	for {
		if ctx.Err() != nil {
			logger.Info("Task runner stopped")
			return nil
		}

		job, err := r.broker.Dequeue(ctx, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("Failed to dequeue task", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		if job == nil {
			continue
		}

		r.process(ctx, *job)
	}
}

func (r *Runner) process(ctx context.Context, job Job) {
	result := r.execute(ctx, job)

	// the outcome is stored even when shutdown began mid-job
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.broker.SetResult(storeCtx, result); err != nil {
		logger.Error("Failed to store task result", "task", job.Name, "task_id", job.ID, "error", err)
	}
}

func (r *Runner) execute(ctx context.Context, job Job) (result TaskResult) {
	result = TaskResult{ID: job.ID, Name: job.Name, EnqueuedAt: job.EnqueuedAt}
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(&result, fmt.Errorf("panic: %v", rec))
		}
		completed := r.now().UTC()
		result.CompletedAt = &completed
	}()

	fn, ok := r.handlers[job.Name]
	if !ok {
		r.fail(&result, fmt.Errorf("unknown task %q", job.Name))
		return result
	}

	start := r.now()
	out, err := fn(ctx)
	if err != nil {
		r.fail(&result, err)
		return result
	}

	result.Status = StatusSuccess
	result.Result = out
	logger.Info("Task succeeded", "task", job.Name, "task_id", job.ID, "result", out,
		"elapsed_ms", r.now().Sub(start).Milliseconds())
	return result
}

func (r *Runner) fail(result *TaskResult, err error) {
	result.Status = StatusFailure
	result.Result = ""
	result.Error = err.Error()
	if errors.Is(err, context.Canceled) {
		logger.Warn("Task cancelled", "task", result.Name, "task_id", result.ID)
		return
	}
	logger.Error("Task failed", "task", result.Name, "task_id", result.ID, "error", err)
}
