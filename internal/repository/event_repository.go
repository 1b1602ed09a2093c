package repository

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadpilot/outreach-router/internal/models"
)

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) EventRepository {
	return &eventRepository{
		db: db,
	}
}

const eventColumns = `id, lead_id, channel, type, campaign, provider_message_id, metadata, created_at`

// Append writes a single audit event. There is no update or delete path
// for events anywhere in this package.
func (r *eventRepository) Append(event *models.EventRow) error {
	query := `
		INSERT INTO events (id, lead_id, channel, type, campaign, provider_message_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(query,
		event.ID,
		event.LeadID,
		event.Channel,
		event.Type,
		event.Campaign,
		event.ProviderMessageID,
		event.Metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// List retrieves the most recent events. A limit of zero or less means
// unlimited, matching ListByStatus on the approvals side.
func (r *eventRepository) List(limit int) ([]*models.EventRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		ORDER BY created_at DESC
		LIMIT NULLIF($1, 0)
	`, eventColumns)

	if limit < 0 {
		limit = 0
	}

	var events []*models.EventRow
	err := r.db.Select(&events, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// ListByLead retrieves the audit trail for one lead, oldest first.
func (r *eventRepository) ListByLead(leadID string) ([]*models.EventRow, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`, eventColumns)

	var events []*models.EventRow
	err := r.db.Select(&events, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events by lead: %w", err)
	}

	return events, nil
}
