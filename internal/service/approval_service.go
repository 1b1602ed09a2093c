package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/repository"
)

type approvalService struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewApprovalService(repo repository.Repository, logger *zap.Logger) ApprovalService {
	return &approvalService{
		repo:   repo,
		logger: logger,
	}
}

// CreateDraft validates the input and persists a new approval in pending
// state. Human review is the only way out of pending.
func (s *approvalService) CreateDraft(_ context.Context, input CreateDraftInput) (*models.Approval, error) {
	channel := models.Channel(input.Channel)
	if !channel.Valid() {
		return nil, apperrors.NewValidation("channel", fmt.Sprintf("unsupported channel %q", input.Channel))
	}
	if input.LeadID == "" {
		return nil, apperrors.NewValidation("lead_id", "lead id must not be empty")
	}

	// A chat draft may omit the destination; the lead's stored channel
	// identity fills it in.
	if input.To == "" && channel == models.ChannelChat {
		contact, err := s.repo.Contact().FindByLeadAndChannel(input.LeadID, channel)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chat destination: %w", err)
		}
		if contact != nil {
			input.To = contact.ExternalID
		}
	}

	if input.To == "" {
		return nil, apperrors.NewValidation("to", "destination must not be empty")
	}
	if input.Text == "" {
		return nil, apperrors.NewValidation("text", "message text must not be empty")
	}
	if channel == models.ChannelEmail {
		if err := checkmail.ValidateFormat(input.To); err != nil {
			return nil, apperrors.NewValidation("to", fmt.Sprintf("invalid email address %q", input.To))
		}
	}

	approval := &models.Approval{
		ID:         uuid.New().String(),
		LeadID:     input.LeadID,
		Channel:    channel,
		ActionType: input.ActionType,
		Text:       input.Text,
		DraftTo:    input.To,
		Status:     models.ApprovalStatusPending,
	}
	if input.Subject != "" {
		approval.Subject = sql.NullString{String: input.Subject, Valid: true}
	}
	if input.Campaign != "" {
		approval.Campaign = sql.NullString{String: input.Campaign, Valid: true}
	}
	if input.Notes != "" {
		approval.Notes = sql.NullString{String: input.Notes, Valid: true}
	}

	if err := s.repo.Approval().Create(approval); err != nil {
		return nil, fmt.Errorf("failed to persist draft: %w", err)
	}

	s.logger.Info("Draft created",
		zap.String("approvalID", approval.ID),
		zap.String("leadID", approval.LeadID),
		zap.String("channel", string(approval.Channel)))

	return approval, nil
}

// Approve moves a pending approval to approved, recording who decided and
// when. Approving anything but a pending item is a conflict.
func (s *approvalService) Approve(_ context.Context, approvalID, approverID string) (*models.Approval, error) {
	return s.decide(approvalID, approverID, models.ApprovalStatusApproved, "")
}

// Reject moves a pending approval to rejected. The reviewer and reason
// go into notes; approved_by and approved_at stay null because the item
// was never approved.
func (s *approvalService) Reject(_ context.Context, approvalID, approverID, reason string) (*models.Approval, error) {
	note := fmt.Sprintf("rejected by %s", approverID)
	if reason != "" {
		note = fmt.Sprintf("rejected by %s: %s", approverID, reason)
	}
	return s.decide(approvalID, approverID, models.ApprovalStatusRejected, note)
}

func (s *approvalService) decide(approvalID, deciderID string, to models.ApprovalStatus, notes string) (*models.Approval, error) {
	if deciderID == "" {
		return nil, apperrors.NewValidation("approver_id", "approver id must not be empty")
	}

	approval, err := s.repo.Approval().GetByID(approvalID)
	if err != nil {
		return nil, err
	}

	// Conditional write: protects against two reviewers deciding the
	// same item at once.
	decided, err := s.repo.Approval().Decide(approvalID, models.ApprovalStatusPending, to, deciderID, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to record decision: %w", err)
	}
	if !decided {
		return nil, &apperrors.ConflictError{ID: approvalID, Current: string(approval.Status)}
	}

	updated, err := s.repo.Approval().GetByID(approvalID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval decided",
		zap.String("approvalID", approvalID),
		zap.String("status", string(updated.Status)),
		zap.String("decidedBy", deciderID))

	return updated, nil
}

// ListPending returns pending approvals oldest first.
func (s *approvalService) ListPending(_ context.Context) ([]*models.Approval, error) {
	return s.repo.Approval().ListByStatus(models.ApprovalStatusPending, 0)
}

// ListApproved returns approved-and-not-yet-sent approvals oldest first,
// the same order the router consumes them in.
func (s *approvalService) ListApproved(_ context.Context) ([]*models.Approval, error) {
	return s.repo.Approval().ListByStatus(models.ApprovalStatusApproved, 0)
}
