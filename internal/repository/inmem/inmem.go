// Package inmem implements the persistence contract in memory. It backs
// service tests and local development; semantics, including the
// compare-and-set on approval status, match the PostgreSQL implementation.
package inmem

import (
	"sort"
	"sync"
	"time"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/repository"
)

// Store holds all tables behind one mutex. Reads return copies so callers
// never share a struct with the store.
type Store struct {
	mu        sync.RWMutex
	leads     map[string]*models.Lead
	approvals map[string]*models.Approval
	events    []*models.EventRow
	contacts  map[string]*models.Contact // keyed by leadID+"/"+channel
	dnc       map[string]*models.DncEntry
	counters  map[string]int // sends per local day
}

func NewStore() *Store {
	return &Store{
		leads:     make(map[string]*models.Lead),
		approvals: make(map[string]*models.Approval),
		contacts:  make(map[string]*models.Contact),
		dnc:       make(map[string]*models.DncEntry),
		counters:  make(map[string]int),
	}
}

func (s *Store) Ping() error { return nil }

func (s *Store) Lead() repository.LeadRepository         { return (*leadTable)(s) }
func (s *Store) Approval() repository.ApprovalRepository { return (*approvalTable)(s) }
func (s *Store) Event() repository.EventRepository       { return (*eventTable)(s) }
func (s *Store) Contact() repository.ContactRepository   { return (*contactTable)(s) }
func (s *Store) Dnc() repository.DncRepository           { return (*dncTable)(s) }
func (s *Store) Counter() repository.CounterRepository   { return (*counterTable)(s) }

type leadTable Store

func (t *leadTable) List() ([]*models.Lead, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	leads := make([]*models.Lead, 0, len(t.leads))
	for _, lead := range t.leads {
		c := *lead
		leads = append(leads, &c)
	}
	sort.Slice(leads, func(i, j int) bool { return leads[i].CreatedAt.Before(leads[j].CreatedAt) })
	return leads, nil
}

func (t *leadTable) Create(lead *models.Lead) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	lead.CreatedAt = time.Now()
	c := *lead
	t.leads[lead.ID] = &c
	return nil
}

func (t *leadTable) Upsert(leads []*models.Lead) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, lead := range leads {
		if lead.CreatedAt.IsZero() {
			lead.CreatedAt = time.Now()
		}
		c := *lead
		t.leads[lead.ID] = &c
	}
	return nil
}

func (t *leadTable) FindByEmail(email string) (*models.Lead, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, lead := range t.leads {
		if lead.Email == email {
			c := *lead
			return &c, nil
		}
	}
	return nil, nil
}

func (t *leadTable) FindByPhone(phone string) (*models.Lead, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, lead := range t.leads {
		if lead.Phone == phone {
			c := *lead
			return &c, nil
		}
	}
	return nil, nil
}

type approvalTable Store

func (t *approvalTable) Create(approval *models.Approval) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	approval.CreatedAt = now
	approval.UpdatedAt = now
	c := *approval
	t.approvals[approval.ID] = &c
	return nil
}

func (t *approvalTable) GetByID(id string) (*models.Approval, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	approval, ok := t.approvals[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := *approval
	return &c, nil
}

func (t *approvalTable) ListByStatus(status models.ApprovalStatus, limit int) ([]*models.Approval, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var approvals []*models.Approval
	for _, approval := range t.approvals {
		if approval.Status == status {
			c := *approval
			approvals = append(approvals, &c)
		}
	}
	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].CreatedAt.Before(approvals[j].CreatedAt)
	})
	if limit > 0 && len(approvals) > limit {
		approvals = approvals[:limit]
	}
	return approvals, nil
}

func (t *approvalTable) TransitionStatus(id string, from, to models.ApprovalStatus) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	approval, ok := t.approvals[id]
	if !ok || approval.Status != from {
		return false, nil
	}
	approval.Status = to
	approval.UpdatedAt = time.Now()
	return true, nil
}

func (t *approvalTable) Decide(id string, from, to models.ApprovalStatus, deciderID, notes string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	approval, ok := t.approvals[id]
	if !ok || approval.Status != from {
		return false, nil
	}
	now := time.Now()
	approval.Status = to
	// approved_by and approved_at record an approval; a rejection leaves
	// them unset and carries the reviewer in notes.
	if to == models.ApprovalStatusApproved {
		approval.ApprovedBy.String = deciderID
		approval.ApprovedBy.Valid = true
		approval.ApprovedAt.Time = now
		approval.ApprovedAt.Valid = true
	}
	if notes != "" {
		approval.Notes.String = notes
		approval.Notes.Valid = true
	}
	approval.UpdatedAt = now
	return true, nil
}

func (t *approvalTable) MarkSent(id, providerMessageID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	approval, ok := t.approvals[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	approval.Status = models.ApprovalStatusSent
	approval.ProviderMessageID.String = providerMessageID
	approval.ProviderMessageID.Valid = true
	approval.LastError.Valid = false
	approval.LastError.String = ""
	approval.UpdatedAt = time.Now()
	return nil
}

func (t *approvalTable) MarkFailed(id string, status models.ApprovalStatus, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	approval, ok := t.approvals[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	approval.Status = status
	approval.LastError.String = errMsg
	approval.LastError.Valid = true
	approval.UpdatedAt = time.Now()
	return nil
}

func (t *approvalTable) ReleaseForRetry(id string, attempts int, errMsg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	approval, ok := t.approvals[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	approval.Status = models.ApprovalStatusApproved
	approval.Attempts = attempts
	approval.LastError.String = errMsg
	approval.LastError.Valid = true
	approval.UpdatedAt = time.Now()
	return nil
}

type eventTable Store

func (t *eventTable) Append(event *models.EventRow) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	c := *event
	t.events = append(t.events, &c)
	return nil
}

func (t *eventTable) List(limit int) ([]*models.EventRow, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	events := make([]*models.EventRow, 0, len(t.events))
	for i := len(t.events) - 1; i >= 0; i-- {
		if limit > 0 && len(events) >= limit {
			break
		}
		c := *t.events[i]
		events = append(events, &c)
	}
	return events, nil
}

func (t *eventTable) ListByLead(leadID string) ([]*models.EventRow, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var events []*models.EventRow
	for _, event := range t.events {
		if event.LeadID == leadID {
			c := *event
			events = append(events, &c)
		}
	}
	return events, nil
}

type counterTable Store

func (t *counterTable) ReserveSendSlot(day string, limit int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counters[day] >= limit {
		return false, nil
	}
	t.counters[day]++
	return true, nil
}

func (t *counterTable) ReleaseSendSlot(day string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.counters[day] > 0 {
		t.counters[day]--
	}
	return nil
}

type contactTable Store

func contactKey(leadID string, channel models.Channel) string {
	return leadID + "/" + string(channel)
}

func (t *contactTable) List() ([]*models.Contact, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	contacts := make([]*models.Contact, 0, len(t.contacts))
	for _, contact := range t.contacts {
		c := *contact
		contacts = append(contacts, &c)
	}
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].CreatedAt.Before(contacts[j].CreatedAt)
	})
	return contacts, nil
}

func (t *contactTable) Upsert(contacts []*models.Contact) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, contact := range contacts {
		if contact.CreatedAt.IsZero() {
			contact.CreatedAt = time.Now()
		}
		c := *contact
		t.contacts[contactKey(contact.LeadID, contact.Channel)] = &c
	}
	return nil
}

func (t *contactTable) FindByLeadAndChannel(leadID string, channel models.Channel) (*models.Contact, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	contact, ok := t.contacts[contactKey(leadID, channel)]
	if !ok {
		return nil, nil
	}
	c := *contact
	return &c, nil
}

type dncTable Store

func (t *dncTable) List() ([]*models.DncEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]*models.DncEntry, 0, len(t.dnc))
	for _, entry := range t.dnc {
		c := *entry
		entries = append(entries, &c)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].AddedAt.Before(entries[j].AddedAt) })
	return entries, nil
}

func (t *dncTable) Upsert(entry *models.DncEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now()
	}
	c := *entry
	t.dnc[entry.Value] = &c
	return nil
}

func (t *dncTable) Remove(value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.dnc, value)
	return nil
}

func (t *dncTable) FindByValue(value string) (*models.DncEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.dnc[value]
	if !ok {
		return nil, nil
	}
	c := *entry
	return &c, nil
}
