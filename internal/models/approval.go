package models

import (
	"database/sql"
	"time"
)

// ApprovalStatus is the state of an approval in its lifecycle.
//
// pending and approved are the only states reachable from human action;
// sending, sent, blocked and failed_permanent are written exclusively by
// the router. sent, rejected, blocked and failed_permanent are terminal.
type ApprovalStatus string

const (
	ApprovalStatusPending         ApprovalStatus = "pending"
	ApprovalStatusApproved        ApprovalStatus = "approved"
	ApprovalStatusRejected        ApprovalStatus = "rejected"
	ApprovalStatusSending         ApprovalStatus = "sending"
	ApprovalStatusSent            ApprovalStatus = "sent"
	ApprovalStatusBlocked         ApprovalStatus = "blocked"
	ApprovalStatusFailedPermanent ApprovalStatus = "failed_permanent"
)

// Terminal reports whether the status admits no further transitions.
func (s ApprovalStatus) Terminal() bool {
	switch s {
	case ApprovalStatusSent, ApprovalStatusRejected, ApprovalStatusBlocked, ApprovalStatusFailedPermanent:
		return true
	}
	return false
}

// Approval is a human-reviewed draft message awaiting dispatch.
type Approval struct {
	ID                string         `db:"id" json:"id"`
	LeadID            string         `db:"lead_id" json:"lead_id"`
	Channel           Channel        `db:"channel" json:"channel"`
	ActionType        string         `db:"action_type" json:"action_type"`
	Subject           sql.NullString `db:"subject" json:"subject,omitempty"`
	Text              string         `db:"text" json:"text"`
	DraftTo           string         `db:"draft_to" json:"draft_to"`
	Campaign          sql.NullString `db:"campaign" json:"campaign,omitempty"`
	Status            ApprovalStatus `db:"status" json:"status"`
	Attempts          int            `db:"attempts" json:"attempts"`
	ApprovedBy        sql.NullString `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt        sql.NullTime   `db:"approved_at" json:"approved_at,omitempty"`
	Notes             sql.NullString `db:"notes" json:"notes,omitempty"`
	ProviderMessageID sql.NullString `db:"provider_message_id" json:"provider_message_id,omitempty"`
	LastError         sql.NullString `db:"last_error" json:"last_error,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}
