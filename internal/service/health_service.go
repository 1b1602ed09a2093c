package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/leadpilot/outreach-router/internal/repository"
)

type healthService struct {
	repo             repository.Repository
	redisClient      *redis.Client
	schedulerService SchedulerService
	routerService    RouterService
}

func NewHealthService(
	repo repository.Repository,
	redisClient *redis.Client,
	schedulerService SchedulerService,
	routerService RouterService,
) HealthService {
	return &healthService{
		repo:             repo,
		redisClient:      redisClient,
		schedulerService: schedulerService,
		routerService:    routerService,
	}
}

func (s *healthService) GetHealth() *HealthStatus {
	status := &HealthStatus{
		Status: StatusHealthy,
	}

	if s.schedulerService.IsRunning() {
		status.SchedulerStatus = SchedulerRunning
	} else {
		status.SchedulerStatus = SchedulerStopped
	}

	status.DatabaseStatus = s.checkDatabase()
	status.RedisStatus = s.checkRedis()

	state, requests, failures := s.routerService.BreakerStatus()
	status.CircuitBreakerState = state
	if requests > 0 {
		status.CircuitBreakerCounts = fmt.Sprintf("requests=%d failures=%d", requests, failures)
	}

	if status.DatabaseStatus != ComponentConnected {
		status.Status = StatusUnhealthy
	} else if status.RedisStatus != ComponentConnected || state == "open" {
		// Redis and the breaker are degradations, not outages: the
		// engine still routes without them.
		status.Status = StatusDegraded
	}

	return status
}

func (s *healthService) checkDatabase() string {
	if err := s.repo.Ping(); err != nil {
		return ComponentDisconnected
	}
	return ComponentConnected
}

func (s *healthService) checkRedis() string {
	if s.redisClient == nil {
		return ComponentDisconnected
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return ComponentDisconnected
	}
	return ComponentConnected
}
