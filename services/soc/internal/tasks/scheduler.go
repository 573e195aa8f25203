package tasks

import (
	"context"
	"time"

	"github.com/securepulse/securepulse/pkg/logger"
)

// Scheduler enqueues one job every interval.
type Scheduler struct {
	broker   Broker
	name     string
	interval time.Duration
}

func NewScheduler(broker Broker, name string, interval time.Duration) *Scheduler {
	return &Scheduler{broker: broker, name: name, interval: interval}
}

// Run ticks until ctx is cancelled. The first job is queued one interval
// after start. A failed enqueue is logged and the next tick tries again.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("Scheduler started", "task", s.name, "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped", "task", s.name)
			return nil
		case <-ticker.C:
			job := NewJob(s.name)
			if err := s.broker.Enqueue(ctx, job); err != nil {
				logger.Error("Failed to schedule task", "task", s.name, "error", err)
				continue
			}
			logger.Debug("Scheduled task", "task", s.name, "task_id", job.ID)
		}
	}
}
