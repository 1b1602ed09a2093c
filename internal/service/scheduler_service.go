package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/config"
	"github.com/leadpilot/outreach-router/internal/scheduler"
)

type schedulerService struct {
	scheduler    *scheduler.Scheduler
	router       RouterService
	maxBatchSize int
	logger       *zap.Logger
}

// NewSchedulerService wires the routing batch onto the interval trigger.
// Each tick is one bounded ProcessApproved run; overlap with another
// instance is safe because the router claims items with a compare-and-set.
func NewSchedulerService(
	cfg *config.Config,
	router RouterService,
	logger *zap.Logger,
) SchedulerService {
	interval := time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute

	svc := &schedulerService{
		router:       router,
		maxBatchSize: cfg.Router.MaxBatchSize,
		logger:       logger,
	}

	svc.scheduler = scheduler.NewScheduler(logger, interval, interval-time.Second, svc.executeBatch)
	return svc
}

func (s *schedulerService) Start() error {
	return s.scheduler.Start(context.Background())
}

func (s *schedulerService) Stop() error {
	return s.scheduler.Stop()
}

func (s *schedulerService) IsRunning() bool {
	return s.scheduler.IsRunning()
}

func (s *schedulerService) executeBatch(ctx context.Context) error {
	result, err := s.router.ProcessApproved(ctx, s.maxBatchSize)
	if err != nil {
		return err
	}

	s.logger.Info("Routing cycle finished",
		zap.Int("sent", result.Sent),
		zap.Int("blocked", result.Blocked),
		zap.Int("failed", result.Failed),
		zap.Int("retried", result.Retried),
		zap.Int("skipped", result.Skipped))
	return nil
}
