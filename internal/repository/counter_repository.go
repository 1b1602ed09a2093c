package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

type counterRepository struct {
	db *sqlx.DB
}

func NewCounterRepository(db *sqlx.DB) CounterRepository {
	return &counterRepository{
		db: db,
	}
}

// ReserveSendSlot increments the day's counter only while it is below
// limit. The insert and the conditional increment are one statement, so
// two dispatchers racing for the last slot cannot both win it.
func (r *counterRepository) ReserveSendSlot(day string, limit int) (bool, error) {
	query := `
		INSERT INTO daily_send_counters (day, sent)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE
		SET sent = daily_send_counters.sent + 1
		WHERE daily_send_counters.sent < $2
	`

	res, err := r.db.Exec(query, day, limit)
	if err != nil {
		return false, fmt.Errorf("failed to reserve send slot: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

// ReleaseSendSlot hands a reserved slot back after a send that did not
// land, so failed attempts never consume the cap.
func (r *counterRepository) ReleaseSendSlot(day string) error {
	query := `
		UPDATE daily_send_counters
		SET sent = sent - 1
		WHERE day = $1 AND sent > 0
	`

	if _, err := r.db.Exec(query, day); err != nil {
		return fmt.Errorf("failed to release send slot: %w", err)
	}

	return nil
}
