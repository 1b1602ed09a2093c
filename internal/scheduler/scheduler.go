package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler invokes a task at a fixed interval. Each invocation is a
// bounded batch job with its own timeout, not a long-running loop; the
// task itself must tolerate overlapping invocations from other instances.
type Scheduler struct {
	logger     *zap.Logger
	interval   time.Duration
	runTimeout time.Duration
	taskFunc   func(context.Context) error
	stopCh     chan struct{}
	doneCh     chan struct{}
	isRunning  bool
	mu         sync.RWMutex
}

// NewScheduler creates a scheduler that runs taskFunc every interval,
// cancelling each run after runTimeout.
func NewScheduler(logger *zap.Logger, interval, runTimeout time.Duration, taskFunc func(context.Context) error) *Scheduler {
	return &Scheduler{
		logger:     logger,
		interval:   interval,
		runTimeout: runTimeout,
		taskFunc:   taskFunc,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the ticker loop. The first run fires immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrSchedulerAlreadyRunning
	}

	s.isRunning = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop halts the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()

	s.logger.Info("Scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	s.executeTask(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context canceled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.executeTask(ctx)
		}
	}
}

func (s *Scheduler) executeTask(ctx context.Context) {
	taskCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if err := s.taskFunc(taskCtx); err != nil {
		s.logger.Error("Scheduled run failed", zap.Error(err))
	}
}
