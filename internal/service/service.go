package service

import (
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/audit"
	"github.com/leadpilot/outreach-router/internal/channel"
	"github.com/leadpilot/outreach-router/internal/config"
	"github.com/leadpilot/outreach-router/internal/policy"
	"github.com/leadpilot/outreach-router/internal/repository"
)

type Service struct {
	Approval  ApprovalService
	Router    RouterService
	Lead      LeadService
	Dnc       DncService
	Scheduler SchedulerService
	Health    HealthService
}

func NewService(
	cfg *config.Config,
	repo repository.Repository,
	policies *config.PolicyStore,
	adapters *channel.Registry,
	publisher audit.Publisher,
	redisClient *redis.Client,
	logger *zap.Logger,
) *Service {
	engine := policy.NewEngine(repo.Dnc(), repo.Counter())

	approvalService := NewApprovalService(repo, logger)
	routerService := NewRouterService(&cfg.Router, repo, policies, engine, adapters, publisher, redisClient, logger)
	leadService := NewLeadService(repo, logger)
	dncService := NewDncService(repo, logger)
	schedulerService := NewSchedulerService(cfg, routerService, logger)
	healthService := NewHealthService(repo, redisClient, schedulerService, routerService)

	return &Service{
		Approval:  approvalService,
		Router:    routerService,
		Lead:      leadService,
		Dnc:       dncService,
		Scheduler: schedulerService,
		Health:    healthService,
	}
}
