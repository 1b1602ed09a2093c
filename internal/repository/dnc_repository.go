package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadpilot/outreach-router/internal/models"
)

type dncRepository struct {
	db *sqlx.DB
}

func NewDncRepository(db *sqlx.DB) DncRepository {
	return &dncRepository{
		db: db,
	}
}

// List retrieves the full registry.
func (r *dncRepository) List() ([]*models.DncEntry, error) {
	query := `SELECT value, reason, added_at FROM dnc_entries ORDER BY added_at ASC`

	var entries []*models.DncEntry
	err := r.db.Select(&entries, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dnc entries: %w", err)
	}

	return entries, nil
}

// Upsert adds a blocked value, updating the reason if it already exists.
// The value itself is never rewritten in place.
func (r *dncRepository) Upsert(entry *models.DncEntry) error {
	query := `
		INSERT INTO dnc_entries (value, reason, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (value) DO UPDATE
		SET reason = EXCLUDED.reason
	`

	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}

	_, err := r.db.Exec(query, entry.Value, entry.Reason, entry.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert dnc entry: %w", err)
	}

	return nil
}

// Remove deletes a blocked value from the registry.
func (r *dncRepository) Remove(value string) error {
	query := `DELETE FROM dnc_entries WHERE value = $1`

	_, err := r.db.Exec(query, value)
	if err != nil {
		return fmt.Errorf("failed to remove dnc entry: %w", err)
	}

	return nil
}

// FindByValue looks up a normalized value, returning (nil, nil) on a miss.
func (r *dncRepository) FindByValue(value string) (*models.DncEntry, error) {
	query := `SELECT value, reason, added_at FROM dnc_entries WHERE value = $1 LIMIT 1`

	var entry models.DncEntry
	err := r.db.Get(&entry, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find dnc entry: %w", err)
	}

	return &entry, nil
}
