package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/policy"
	"github.com/leadpilot/outreach-router/internal/repository"
)

type dncService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewDncService(repo repository.Repository, logger *zap.Logger) DncService {
	return &dncService{
		repo:   repo,
		logger: logger,
	}
}

// Add inserts a value into the do-not-contact registry. The value is
// normalized with the same rule the dispatch-time check uses, so an entry
// added as "User@X.com " blocks a draft addressed to "user@x.com".
func (s *dncService) Add(_ context.Context, value, reason string) (*models.DncEntry, error) {
	normalized := normalizeDncValue(value)
	if normalized == "" {
		return nil, apperrors.NewValidation("value", "value must not be empty")
	}

	entry := &models.DncEntry{
		Value:  normalized,
		Reason: reason,
	}
	if err := s.repo.Dnc().Upsert(entry); err != nil {
		return nil, err
	}

	s.logger.Info("DNC entry added",
		zap.String("value", normalized),
		zap.String("reason", reason))
	return entry, nil
}

func (s *dncService) Remove(_ context.Context, value string) error {
	return s.repo.Dnc().Remove(normalizeDncValue(value))
}

func (s *dncService) List(_ context.Context) ([]*models.DncEntry, error) {
	return s.repo.Dnc().List()
}

// normalizeDncValue picks the email or phone rule based on the value's
// shape. One canonical rule per shape, shared with the policy engine.
func normalizeDncValue(value string) string {
	if strings.Contains(value, "@") {
		return policy.NormalizeEmail(value)
	}
	return policy.NormalizePhone(value)
}
