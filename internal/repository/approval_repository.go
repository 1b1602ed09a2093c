package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
)

type approvalRepository struct {
	db *sqlx.DB
}

func NewApprovalRepository(db *sqlx.DB) ApprovalRepository {
	return &approvalRepository{
		db: db,
	}
}

const approvalColumns = `id, lead_id, channel, action_type, subject, text, draft_to, campaign,
		status, attempts, approved_by, approved_at, notes, provider_message_id, last_error,
		created_at, updated_at`

// Create inserts a new approval row.
func (r *approvalRepository) Create(approval *models.Approval) error {
	query := `
		INSERT INTO approvals (id, lead_id, channel, action_type, subject, text, draft_to, campaign,
			status, attempts, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	now := time.Now()
	approval.CreatedAt = now
	approval.UpdatedAt = now

	_, err := r.db.Exec(query,
		approval.ID,
		approval.LeadID,
		approval.Channel,
		approval.ActionType,
		approval.Subject,
		approval.Text,
		approval.DraftTo,
		approval.Campaign,
		approval.Status,
		approval.Attempts,
		approval.Notes,
		approval.CreatedAt,
		approval.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}

	return nil
}

// GetByID fetches a single approval.
func (r *approvalRepository) GetByID(id string) (*models.Approval, error) {
	query := fmt.Sprintf(`SELECT %s FROM approvals WHERE id = $1`, approvalColumns)

	var approval models.Approval
	err := r.db.Get(&approval, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	return &approval, nil
}

// ListByStatus retrieves approvals in the given status, oldest first so
// the longest-waiting items are routed first under a capped batch. A
// limit of zero or less means unlimited.
func (r *approvalRepository) ListByStatus(status models.ApprovalStatus, limit int) ([]*models.Approval, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM approvals
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT NULLIF($2, 0)
	`, approvalColumns)

	if limit < 0 {
		limit = 0
	}

	var approvals []*models.Approval
	err := r.db.Select(&approvals, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}

	return approvals, nil
}

// TransitionStatus performs a compare-and-set on the status column. The
// write succeeds only if the stored status still equals from; the returned
// bool reports whether this caller won the transition.
func (r *approvalRepository) TransitionStatus(id string, from, to models.ApprovalStatus) (bool, error) {
	query := `
		UPDATE approvals
		SET status = $3,
		    updated_at = $4
		WHERE id = $1 AND status = $2
	`

	res, err := r.db.Exec(query, id, from, to, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to transition approval status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// Decide records a human decision (approve or reject) with the same
// compare-and-set guarantee as TransitionStatus. approved_by and
// approved_at record an approval; a rejection leaves them null and
// carries the reviewer in notes.
func (r *approvalRepository) Decide(id string, from, to models.ApprovalStatus, deciderID, notes string) (bool, error) {
	var noteVal sql.NullString
	if notes != "" {
		noteVal = sql.NullString{String: notes, Valid: true}
	}

	var res sql.Result
	var err error
	if to == models.ApprovalStatusApproved {
		query := `
			UPDATE approvals
			SET status = $3,
			    approved_by = $4,
			    approved_at = $5,
			    notes = $6,
			    updated_at = $5
			WHERE id = $1 AND status = $2
		`
		res, err = r.db.Exec(query, id, from, to, deciderID, time.Now(), noteVal)
	} else {
		query := `
			UPDATE approvals
			SET status = $3,
			    notes = $4,
			    updated_at = $5
			WHERE id = $1 AND status = $2
		`
		res, err = r.db.Exec(query, id, from, to, noteVal, time.Now())
	}
	if err != nil {
		return false, fmt.Errorf("failed to record decision: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// MarkSent writes the terminal sent status with the provider message id.
func (r *approvalRepository) MarkSent(id, providerMessageID string) error {
	query := `
		UPDATE approvals
		SET status = $2,
		    provider_message_id = $3,
		    last_error = NULL,
		    updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.Exec(query, id, models.ApprovalStatusSent, providerMessageID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark approval sent: %w", err)
	}

	return nil
}

// MarkFailed writes a terminal failure or block status with the reason.
func (r *approvalRepository) MarkFailed(id string, status models.ApprovalStatus, errMsg string) error {
	query := `
		UPDATE approvals
		SET status = $2,
		    last_error = $3,
		    updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.Exec(query, id, status, errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark approval failed: %w", err)
	}

	return nil
}

// ReleaseForRetry returns a claimed approval to the approved status so a
// future cycle retries it, recording the attempt count and last error.
func (r *approvalRepository) ReleaseForRetry(id string, attempts int, errMsg string) error {
	query := `
		UPDATE approvals
		SET status = $2,
		    attempts = $3,
		    last_error = $4,
		    updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.Exec(query, id, models.ApprovalStatusApproved, attempts, errMsg, time.Now())
	if err != nil {
		return fmt.Errorf("failed to release approval for retry: %w", err)
	}

	return nil
}
