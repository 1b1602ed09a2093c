package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/models"
)

// PolicyStore holds the current SendPolicy behind a lock. The router reads
// it once per batch so a reload takes effect on the next cycle without a
// restart and without hidden shared state.
type PolicyStore struct {
	mu     sync.RWMutex
	policy models.SendPolicy
}

func NewPolicyStore(policy models.SendPolicy) *PolicyStore {
	return &PolicyStore{policy: policy}
}

// Current returns the policy as of now.
func (s *PolicyStore) Current() models.SendPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Update replaces the policy.
func (s *PolicyStore) Update(policy models.SendPolicy) {
	s.mu.Lock()
	s.policy = policy
	s.mu.Unlock()
}

// WatchPolicy re-reads the policy section whenever the config file changes
// and pushes the result into the store. Invalid edits are logged and the
// previous policy stays in effect.
func WatchPolicy(store *PolicyStore, logger *zap.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		var fresh Config
		if err := viper.Unmarshal(&fresh); err != nil {
			logger.Error("Failed to reload config, keeping previous policy",
				zap.String("file", e.Name),
				zap.Error(err))
			return
		}
		if err := fresh.Policy.validate(); err != nil {
			logger.Error("Rejected invalid policy reload",
				zap.String("file", e.Name),
				zap.Error(err))
			return
		}
		store.Update(fresh.Policy.SendPolicy())
		logger.Info("Send policy reloaded", zap.String("file", e.Name))
	})
	viper.WatchConfig()
}
