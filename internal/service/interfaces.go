package service

import (
	"context"

	"github.com/leadpilot/outreach-router/internal/models"
)

// ApprovalService owns the approval state machine: draft creation and the
// human approve/reject gate.
type ApprovalService interface {
	CreateDraft(ctx context.Context, input CreateDraftInput) (*models.Approval, error)
	Approve(ctx context.Context, approvalID, approverID string) (*models.Approval, error)
	Reject(ctx context.Context, approvalID, approverID, reason string) (*models.Approval, error)
	ListPending(ctx context.Context) ([]*models.Approval, error)
	ListApproved(ctx context.Context) ([]*models.Approval, error)
}

// RouterService dispatches approved drafts through channel adapters after
// re-validating them against the live policy.
type RouterService interface {
	ProcessApproved(ctx context.Context, maxBatchSize int) (BatchResult, error)
	BreakerStatus() (state string, requests, failures uint32)
}

// LeadService manages lead records and their channel identity mappings
// at the engine's boundary.
type LeadService interface {
	CreateLead(ctx context.Context, lead *models.Lead) (*models.Lead, error)
	ListLeads(ctx context.Context) ([]*models.Lead, error)
	ListLeadEvents(ctx context.Context, leadID string) ([]*models.EventRow, error)
	SetLeadContact(ctx context.Context, leadID, channel, externalID string) (*models.Contact, error)
	ListContacts(ctx context.Context) ([]*models.Contact, error)
}

// DncService manages the do-not-contact registry. Values are normalized
// before storage so registry lookups and dispatch-time checks agree.
type DncService interface {
	Add(ctx context.Context, value, reason string) (*models.DncEntry, error)
	Remove(ctx context.Context, value string) error
	List(ctx context.Context) ([]*models.DncEntry, error)
}

type SchedulerService interface {
	Start() error
	Stop() error
	IsRunning() bool
}

type HealthService interface {
	GetHealth() *HealthStatus
}
