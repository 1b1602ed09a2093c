package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/config"
	"github.com/leadpilot/outreach-router/internal/scheduler"
	"github.com/leadpilot/outreach-router/internal/service"
)

type countingRouter struct {
	mu        sync.Mutex
	calls     int
	batchSize int
}

func (c *countingRouter) ProcessApproved(_ context.Context, maxBatchSize int) (service.BatchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.batchSize = maxBatchSize
	return service.BatchResult{}, nil
}

func (c *countingRouter) BreakerStatus() (string, uint32, uint32) {
	return "closed", 0, 0
}

func schedulerConfig() *config.Config {
	return &config.Config{
		Router:    config.RouterConfig{MaxBatchSize: 7},
		Scheduler: config.SchedulerConfig{IntervalMinutes: 1},
	}
}

func TestSchedulerService_Lifecycle(t *testing.T) {
	router := &countingRouter{}
	svc := service.NewSchedulerService(schedulerConfig(), router, zap.NewNop())

	assert.False(t, svc.IsRunning())

	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	assert.ErrorIs(t, svc.Start(), scheduler.ErrSchedulerAlreadyRunning)

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())

	assert.ErrorIs(t, svc.Stop(), scheduler.ErrSchedulerNotRunning)
}

func TestSchedulerService_RunsBatchWithConfiguredSize(t *testing.T) {
	router := &countingRouter{}
	svc := service.NewSchedulerService(schedulerConfig(), router, zap.NewNop())

	require.NoError(t, svc.Start())
	defer func() { _ = svc.Stop() }()

	// The first run fires on start.
	assert.Eventually(t, func() bool {
		router.mu.Lock()
		defer router.mu.Unlock()
		return router.calls >= 1
	}, time.Second, 10*time.Millisecond)

	router.mu.Lock()
	defer router.mu.Unlock()
	assert.Equal(t, 7, router.batchSize)
}
