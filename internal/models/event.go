package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// EventType classifies an audit event.
type EventType string

const (
	EventSendAttempted       EventType = "send_attempted"
	EventSendSucceeded       EventType = "send_succeeded"
	EventSendFailed          EventType = "send_failed"
	EventSendFailedPermanent EventType = "send_failed_permanent"
	EventSendBlockedDnc      EventType = "send_blocked_dnc"
	EventSendBlockedChannel  EventType = "send_blocked_channel"
	EventSendBlockedWindow   EventType = "send_blocked_window"
	EventSendBlockedCap      EventType = "send_blocked_cap"
)

// EventRow is an append-only audit record. Rows are never mutated or deleted.
type EventRow struct {
	ID                string          `db:"id" json:"id"`
	LeadID            string          `db:"lead_id" json:"lead_id"`
	Channel           Channel         `db:"channel" json:"channel"`
	Type              EventType       `db:"type" json:"type"`
	Campaign          sql.NullString  `db:"campaign" json:"campaign,omitempty"`
	ProviderMessageID sql.NullString  `db:"provider_message_id" json:"provider_message_id,omitempty"`
	Metadata          json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
