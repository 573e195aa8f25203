// Package tasks runs named background jobs off a shared queue and keeps
// their outcome for later lookup.
package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

var ErrTaskNotFound = errors.New("task not found")

// Job is one queued unit of work.
type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewJob(name string) Job {
	return Job{
		ID:         uuid.NewString(),
		Name:       name,
		EnqueuedAt: time.Now().UTC(),
	}
}

// TaskResult is the stored outcome of a job. Result is set on success and
// Error on failure.
type TaskResult struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Broker moves jobs from producers to the runner and stores their results.
type Broker interface {
	// Enqueue queues job and records it as pending.
	Enqueue(ctx context.Context, job Job) error
	// Dequeue blocks up to timeout for the next job; nil, nil on timeout.
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	SetResult(ctx context.Context, result TaskResult) error
	// Result returns ErrTaskNotFound for unknown or expired ids.
	Result(ctx context.Context, id string) (*TaskResult, error)
}

// HandlerFunc executes one job and returns its textual result.
type HandlerFunc func(ctx context.Context) (string, error)
