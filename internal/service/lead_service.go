package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/repository"
)

type leadService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewLeadService(repo repository.Repository, logger *zap.Logger) LeadService {
	return &leadService{
		repo:   repo,
		logger: logger,
	}
}

func (s *leadService) CreateLead(_ context.Context, lead *models.Lead) (*models.Lead, error) {
	if lead.Email == "" && lead.Phone == "" {
		return nil, apperrors.NewValidation("email", "lead needs an email or a phone")
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.Status == "" {
		lead.Status = models.LeadStatusNew
	}

	if err := s.repo.Lead().Create(lead); err != nil {
		return nil, err
	}

	s.logger.Info("Lead created", zap.String("leadID", lead.ID))
	return lead, nil
}

func (s *leadService) ListLeads(_ context.Context) ([]*models.Lead, error) {
	return s.repo.Lead().List()
}

// ListLeadEvents returns the audit trail for one lead, oldest first.
func (s *leadService) ListLeadEvents(_ context.Context, leadID string) ([]*models.EventRow, error) {
	return s.repo.Event().ListByLead(leadID)
}

// SetLeadContact records the lead's identity on a channel, e.g. a chat
// platform user id. Chat drafts without an explicit destination resolve
// through this mapping.
func (s *leadService) SetLeadContact(_ context.Context, leadID, channelName, externalID string) (*models.Contact, error) {
	ch := models.Channel(channelName)
	if !ch.Valid() {
		return nil, apperrors.NewValidation("channel", fmt.Sprintf("unsupported channel %q", channelName))
	}
	if leadID == "" {
		return nil, apperrors.NewValidation("lead_id", "lead id must not be empty")
	}
	if externalID == "" {
		return nil, apperrors.NewValidation("external_id", "external id must not be empty")
	}

	contact := &models.Contact{
		LeadID:     leadID,
		Channel:    ch,
		ExternalID: externalID,
	}
	if err := s.repo.Contact().Upsert([]*models.Contact{contact}); err != nil {
		return nil, err
	}

	s.logger.Info("Lead contact recorded",
		zap.String("leadID", leadID),
		zap.String("channel", channelName))
	return contact, nil
}

func (s *leadService) ListContacts(_ context.Context) ([]*models.Contact, error) {
	return s.repo.Contact().List()
}
