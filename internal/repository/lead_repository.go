package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/leadpilot/outreach-router/internal/models"
)

type leadRepository struct {
	db *sqlx.DB
}

func NewLeadRepository(db *sqlx.DB) LeadRepository {
	return &leadRepository{
		db: db,
	}
}

const leadColumns = `id, first_name, last_name, email, phone, city, source, tags, status, created_at`

// List retrieves all leads ordered by creation time.
func (r *leadRepository) List() ([]*models.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads ORDER BY created_at ASC`, leadColumns)

	var leads []*models.Lead
	err := r.db.Select(&leads, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}

	return leads, nil
}

// Create inserts a new lead.
func (r *leadRepository) Create(lead *models.Lead) error {
	query := `
		INSERT INTO leads (id, first_name, last_name, email, phone, city, source, tags, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	lead.CreatedAt = time.Now()

	_, err := r.db.Exec(query,
		lead.ID,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.City,
		lead.Source,
		lead.Tags,
		lead.Status,
		lead.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// Upsert inserts or replaces leads keyed by id.
func (r *leadRepository) Upsert(leads []*models.Lead) error {
	query := `
		INSERT INTO leads (id, first_name, last_name, email, phone, city, source, tags, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    email = EXCLUDED.email,
		    phone = EXCLUDED.phone,
		    city = EXCLUDED.city,
		    source = EXCLUDED.source,
		    tags = EXCLUDED.tags,
		    status = EXCLUDED.status
	`

	for _, lead := range leads {
		if lead.CreatedAt.IsZero() {
			lead.CreatedAt = time.Now()
		}
		_, err := r.db.Exec(query,
			lead.ID,
			lead.FirstName,
			lead.LastName,
			lead.Email,
			lead.Phone,
			lead.City,
			lead.Source,
			lead.Tags,
			lead.Status,
			lead.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert lead %s: %w", lead.ID, err)
		}
	}

	return nil
}

// FindByEmail returns the lead with the given email, or (nil, nil).
func (r *leadRepository) FindByEmail(email string) (*models.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE email = $1 LIMIT 1`, leadColumns)

	var lead models.Lead
	err := r.db.Get(&lead, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead by email: %w", err)
	}

	return &lead, nil
}

// FindByPhone returns the lead with the given phone, or (nil, nil).
func (r *leadRepository) FindByPhone(phone string) (*models.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE phone = $1 LIMIT 1`, leadColumns)

	var lead models.Lead
	err := r.db.Get(&lead, query, phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lead by phone: %w", err)
	}

	return &lead, nil
}
