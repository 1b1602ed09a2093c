package models

import "time"

// DncEntry is a do-not-contact registry row. The value is stored in
// normalized form (see internal/policy). Entries are added or removed,
// never edited in place.
type DncEntry struct {
	Value   string    `db:"value" json:"value"`
	Reason  string    `db:"reason" json:"reason"`
	AddedAt time.Time `db:"added_at" json:"added_at"`
}
