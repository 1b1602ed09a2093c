package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadpilot/outreach-router/internal/models"
)

type contactRepository struct {
	db *sqlx.DB
}

func NewContactRepository(db *sqlx.DB) ContactRepository {
	return &contactRepository{
		db: db,
	}
}

// List retrieves all channel identity mappings.
func (r *contactRepository) List() ([]*models.Contact, error) {
	query := `
		SELECT lead_id, channel, external_id, created_at
		FROM contacts
		ORDER BY created_at ASC
	`

	var contacts []*models.Contact
	err := r.db.Select(&contacts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	return contacts, nil
}

// Upsert inserts or replaces mappings keyed by (lead_id, channel).
func (r *contactRepository) Upsert(contacts []*models.Contact) error {
	query := `
		INSERT INTO contacts (lead_id, channel, external_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id, channel) DO UPDATE
		SET external_id = EXCLUDED.external_id
	`

	for _, contact := range contacts {
		if contact.CreatedAt.IsZero() {
			contact.CreatedAt = time.Now()
		}
		_, err := r.db.Exec(query, contact.LeadID, contact.Channel, contact.ExternalID, contact.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert contact for lead %s: %w", contact.LeadID, err)
		}
	}

	return nil
}

// FindByLeadAndChannel returns the mapping for one lead and channel, or
// (nil, nil) when none exists.
func (r *contactRepository) FindByLeadAndChannel(leadID string, channel models.Channel) (*models.Contact, error) {
	query := `
		SELECT lead_id, channel, external_id, created_at
		FROM contacts
		WHERE lead_id = $1 AND channel = $2
		LIMIT 1
	`

	var contact models.Contact
	err := r.db.Get(&contact, query, leadID, channel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}

	return &contact, nil
}
