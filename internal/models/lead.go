package models

import "time"

type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusActive       LeadStatus = "active"
	LeadStatusUnsubscribed LeadStatus = "unsubscribed"
)

// Lead represents a prospective customer contact record.
type Lead struct {
	ID        string     `db:"id" json:"id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Email     string     `db:"email" json:"email"`
	Phone     string     `db:"phone" json:"phone"`
	City      string     `db:"city" json:"city,omitempty"`
	Source    string     `db:"source" json:"source,omitempty"`
	Tags      string     `db:"tags" json:"tags,omitempty"`
	Status    LeadStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// Contact maps a lead to its identity on an external channel,
// e.g. a chat platform user id. Read-only input to routing.
type Contact struct {
	LeadID     string    `db:"lead_id" json:"lead_id"`
	Channel    Channel   `db:"channel" json:"channel"`
	ExternalID string    `db:"external_id" json:"external_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
