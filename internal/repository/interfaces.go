package repository

import (
	"github.com/leadpilot/outreach-router/internal/models"
)

// Repository interface defines all persistence operations consumed by the
// engine. The engine never performs storage I/O except through this
// contract.
type Repository interface {
	// Ping checks store connectivity
	Ping() error

	Lead() LeadRepository
	Approval() ApprovalRepository
	Event() EventRepository
	Contact() ContactRepository
	Dnc() DncRepository
	Counter() CounterRepository
}

// LeadRepository defines lead operations. Find methods return (nil, nil)
// when no row matches.
type LeadRepository interface {
	List() ([]*models.Lead, error)
	Create(lead *models.Lead) error
	Upsert(leads []*models.Lead) error
	FindByEmail(email string) (*models.Lead, error)
	FindByPhone(phone string) (*models.Lead, error)
}

// ApprovalRepository defines approval operations.
//
// TransitionStatus and Decide are conditional writes: they succeed only if
// the stored status still equals from. This compare-and-set is the sole
// concurrency-control primitive in the engine; it is what keeps two router
// instances from dispatching the same approval.
type ApprovalRepository interface {
	Create(approval *models.Approval) error
	GetByID(id string) (*models.Approval, error)
	ListByStatus(status models.ApprovalStatus, limit int) ([]*models.Approval, error)
	TransitionStatus(id string, from, to models.ApprovalStatus) (bool, error)
	Decide(id string, from, to models.ApprovalStatus, deciderID, notes string) (bool, error)
	MarkSent(id, providerMessageID string) error
	MarkFailed(id string, status models.ApprovalStatus, errMsg string) error
	ReleaseForRetry(id string, attempts int, errMsg string) error
}

// EventRepository defines audit-trail operations. Append is append-only and
// must never fail silently; a returned error breaks the audit guarantee and
// has to be surfaced by the caller.
type EventRepository interface {
	Append(event *models.EventRow) error
	List(limit int) ([]*models.EventRow, error)
	ListByLead(leadID string) ([]*models.EventRow, error)
}

// CounterRepository tracks how many sends landed per local calendar day.
// ReserveSendSlot is a conditional increment: the count moves up only
// while it is below limit, and the returned bool reports whether this
// caller took the slot. Reserving before the send and releasing on
// failure is what holds the daily cap under concurrent dispatchers.
type CounterRepository interface {
	ReserveSendSlot(day string, limit int) (bool, error)
	ReleaseSendSlot(day string) error
}

// ContactRepository defines lead-to-channel-identity mappings. Read-only
// input to routing.
type ContactRepository interface {
	List() ([]*models.Contact, error)
	Upsert(contacts []*models.Contact) error
	FindByLeadAndChannel(leadID string, channel models.Channel) (*models.Contact, error)
}

// DncRepository defines the do-not-contact registry. Values are stored
// normalized; FindByValue returns (nil, nil) on a miss.
type DncRepository interface {
	List() ([]*models.DncEntry, error)
	Upsert(entry *models.DncEntry) error
	Remove(value string) error
	FindByValue(value string) (*models.DncEntry, error)
}
