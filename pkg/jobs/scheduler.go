package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler enqueues jobs on a queue following cron expressions.
type Scheduler struct {
	cron   *cron.Cron
	queue  *Queue
	logger *zap.Logger
}

// NewScheduler builds a scheduler bound to queue. Expressions use the standard five fields.
func NewScheduler(queue *Queue, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		queue:  queue,
		logger: logger,
	}
}

// Every registers jobType to be enqueued whenever spec fires. An empty spec disables the entry.
func (s *Scheduler) Every(spec, jobType string, payload func() interface{}) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		job := Job{Type: jobType}
		if payload != nil {
			job.Payload = payload()
		}
		id, err := s.queue.Enqueue(job)
		if err != nil {
			s.logger.Error("scheduled enqueue failed", zap.String("type", jobType), zap.Error(err))
			return
		}
		s.logger.Info("scheduled job enqueued", zap.String("type", jobType), zap.String("job_id", id))
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", jobType, spec, err)
	}
	return nil
}

// Entries reports the number of registered schedules.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop and waits for running callbacks.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
