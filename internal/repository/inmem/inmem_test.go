package inmem_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/repository/inmem"
)

func newApproval(id string, status models.ApprovalStatus) *models.Approval {
	return &models.Approval{
		ID:      id,
		LeadID:  "lead-" + id,
		Channel: models.ChannelEmail,
		Text:    "hello",
		DraftTo: "user@example.com",
		Status:  status,
	}
}

func TestApprovalTable_TransitionStatus(t *testing.T) {
	tests := []struct {
		name    string
		initial models.ApprovalStatus
		from    models.ApprovalStatus
		to      models.ApprovalStatus
		claimed bool
	}{
		{
			name:    "matching status transitions",
			initial: models.ApprovalStatusApproved,
			from:    models.ApprovalStatusApproved,
			to:      models.ApprovalStatusSending,
			claimed: true,
		},
		{
			name:    "stale status does not transition",
			initial: models.ApprovalStatusSent,
			from:    models.ApprovalStatusApproved,
			to:      models.ApprovalStatusSending,
			claimed: false,
		},
		{
			name:    "pending is not claimable",
			initial: models.ApprovalStatusPending,
			from:    models.ApprovalStatusApproved,
			to:      models.ApprovalStatusSending,
			claimed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := inmem.NewStore()
			require.NoError(t, store.Approval().Create(newApproval("a-1", tt.initial)))

			claimed, err := store.Approval().TransitionStatus("a-1", tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.claimed, claimed)

			got, err := store.Approval().GetByID("a-1")
			require.NoError(t, err)
			if tt.claimed {
				assert.Equal(t, tt.to, got.Status)
			} else {
				assert.Equal(t, tt.initial, got.Status)
			}
		})
	}

	t.Run("unknown id", func(t *testing.T) {
		store := inmem.NewStore()
		claimed, err := store.Approval().TransitionStatus("missing", models.ApprovalStatusApproved, models.ApprovalStatusSending)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestApprovalTable_TransitionStatus_Concurrent(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Approval().Create(newApproval("a-1", models.ApprovalStatusApproved)))

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.Approval().TransitionStatus("a-1", models.ApprovalStatusApproved, models.ApprovalStatusSending)
			assert.NoError(t, err)
			if claimed {
				wins <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(wins)
	assert.Len(t, wins, 1, "exactly one claimant should win")
}

func TestApprovalTable_Decide(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Approval().Create(newApproval("a-1", models.ApprovalStatusPending)))

	decided, err := store.Approval().Decide("a-1", models.ApprovalStatusPending, models.ApprovalStatusApproved, "reviewer-1", "")
	require.NoError(t, err)
	require.True(t, decided)

	got, err := store.Approval().GetByID("a-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, got.Status)
	assert.Equal(t, "reviewer-1", got.ApprovedBy.String)
	assert.True(t, got.ApprovedAt.Valid)

	// Second decision loses the compare-and-set.
	decided, err = store.Approval().Decide("a-1", models.ApprovalStatusPending, models.ApprovalStatusRejected, "reviewer-2", "changed my mind")
	require.NoError(t, err)
	assert.False(t, decided)

	got, err = store.Approval().GetByID("a-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, got.Status)
	assert.Equal(t, "reviewer-1", got.ApprovedBy.String)
}

func TestApprovalTable_Decide_RejectionLeavesApprovalFieldsNull(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Approval().Create(newApproval("a-1", models.ApprovalStatusPending)))

	decided, err := store.Approval().Decide("a-1", models.ApprovalStatusPending, models.ApprovalStatusRejected, "reviewer-1", "rejected by reviewer-1: wrong tone")
	require.NoError(t, err)
	require.True(t, decided)

	// approved_by and approved_at record an approval that never
	// happened here; the reviewer lives in notes instead.
	got, err := store.Approval().GetByID("a-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, got.Status)
	assert.False(t, got.ApprovedBy.Valid)
	assert.False(t, got.ApprovedAt.Valid)
	assert.Equal(t, "rejected by reviewer-1: wrong tone", got.Notes.String)
}

func TestApprovalTable_ListByStatus(t *testing.T) {
	store := inmem.NewStore()
	for i := 0; i < 5; i++ {
		a := newApproval(fmt.Sprintf("a-%d", i), models.ApprovalStatusApproved)
		require.NoError(t, store.Approval().Create(a))
		time.Sleep(time.Millisecond)
	}
	require.NoError(t, store.Approval().Create(newApproval("p-1", models.ApprovalStatusPending)))

	t.Run("oldest first", func(t *testing.T) {
		approvals, err := store.Approval().ListByStatus(models.ApprovalStatusApproved, 0)
		require.NoError(t, err)
		require.Len(t, approvals, 5)
		for i := 1; i < len(approvals); i++ {
			assert.False(t, approvals[i].CreatedAt.Before(approvals[i-1].CreatedAt))
		}
	})

	t.Run("limit honored", func(t *testing.T) {
		approvals, err := store.Approval().ListByStatus(models.ApprovalStatusApproved, 2)
		require.NoError(t, err)
		assert.Len(t, approvals, 2)
		assert.Equal(t, "a-0", approvals[0].ID)
		assert.Equal(t, "a-1", approvals[1].ID)
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		approvals, err := store.Approval().ListByStatus(models.ApprovalStatusApproved, 0)
		require.NoError(t, err)
		assert.Len(t, approvals, 5)
	})
}

func TestApprovalTable_MarkSentAndFailed(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Approval().Create(newApproval("a-1", models.ApprovalStatusSending)))
	require.NoError(t, store.Approval().Create(newApproval("a-2", models.ApprovalStatusSending)))

	require.NoError(t, store.Approval().MarkSent("a-1", "smtp-123"))
	got, err := store.Approval().GetByID("a-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusSent, got.Status)
	assert.Equal(t, "smtp-123", got.ProviderMessageID.String)
	assert.False(t, got.LastError.Valid)

	require.NoError(t, store.Approval().MarkFailed("a-2", models.ApprovalStatusFailedPermanent, "mailbox does not exist"))
	got, err = store.Approval().GetByID("a-2")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusFailedPermanent, got.Status)
	assert.Equal(t, "mailbox does not exist", got.LastError.String)

	assert.ErrorIs(t, store.Approval().MarkSent("missing", "x"), apperrors.ErrNotFound)
}

func TestApprovalTable_ReleaseForRetry(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Approval().Create(newApproval("a-1", models.ApprovalStatusSending)))

	require.NoError(t, store.Approval().ReleaseForRetry("a-1", 2, "connection refused"))

	got, err := store.Approval().GetByID("a-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "connection refused", got.LastError.String)
}

func TestApprovalTable_GetByID_NotFound(t *testing.T) {
	store := inmem.NewStore()
	_, err := store.Approval().GetByID("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEventTable_List(t *testing.T) {
	store := inmem.NewStore()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Event().Append(&models.EventRow{
			ID:      fmt.Sprintf("e-%d", i),
			LeadID:  "l-1",
			Channel: models.ChannelEmail,
			Type:    models.EventSendAttempted,
		}))
		time.Sleep(time.Millisecond)
	}

	t.Run("newest first with limit", func(t *testing.T) {
		events, err := store.Event().List(2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "e-3", events[0].ID)
		assert.Equal(t, "e-2", events[1].ID)
	})

	t.Run("zero limit means unlimited", func(t *testing.T) {
		events, err := store.Event().List(0)
		require.NoError(t, err)
		assert.Len(t, events, 4)
	})
}

func TestCounterTable_ReserveSendSlot(t *testing.T) {
	store := inmem.NewStore()

	for i := 0; i < 2; i++ {
		ok, err := store.Counter().ReserveSendSlot("2026-03-02", 2)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.Counter().ReserveSendSlot("2026-03-02", 2)
	require.NoError(t, err)
	assert.False(t, ok, "a full day admits no further slots")

	// A released slot reopens the day; other days are untouched.
	require.NoError(t, store.Counter().ReleaseSendSlot("2026-03-02"))
	ok, err = store.Counter().ReserveSendSlot("2026-03-02", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Counter().ReserveSendSlot("2026-03-03", 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCounterTable_ReserveSendSlot_Concurrent(t *testing.T) {
	store := inmem.NewStore()

	const workers = 32
	const limit = 5

	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Counter().ReserveSendSlot("2026-03-02", limit)
			assert.NoError(t, err)
			if ok {
				wins <- struct{}{}
			}
		}()
	}

	wg.Wait()
	close(wins)
	assert.Len(t, wins, limit, "exactly limit reservations should win")
}

func TestContactTable_Roundtrip(t *testing.T) {
	store := inmem.NewStore()

	require.NoError(t, store.Contact().Upsert([]*models.Contact{
		{LeadID: "l-1", Channel: models.ChannelChat, ExternalID: "chat-user-77"},
	}))

	contact, err := store.Contact().FindByLeadAndChannel("l-1", models.ChannelChat)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, "chat-user-77", contact.ExternalID)

	contact, err = store.Contact().FindByLeadAndChannel("l-1", models.ChannelEmail)
	require.NoError(t, err)
	assert.Nil(t, contact)

	// Upsert replaces the mapping for the same lead and channel.
	require.NoError(t, store.Contact().Upsert([]*models.Contact{
		{LeadID: "l-1", Channel: models.ChannelChat, ExternalID: "chat-user-88"},
	}))

	contacts, err := store.Contact().List()
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "chat-user-88", contacts[0].ExternalID)
}

func TestEventTable_ListByLead(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Event().Append(&models.EventRow{ID: "e-1", LeadID: "l-1", Type: models.EventSendAttempted}))
	require.NoError(t, store.Event().Append(&models.EventRow{ID: "e-2", LeadID: "l-2", Type: models.EventSendAttempted}))
	require.NoError(t, store.Event().Append(&models.EventRow{ID: "e-3", LeadID: "l-1", Type: models.EventSendSucceeded}))

	events, err := store.Event().ListByLead("l-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e-1", events[0].ID)
	assert.Equal(t, "e-3", events[1].ID)
}

func TestDncTable_Roundtrip(t *testing.T) {
	store := inmem.NewStore()

	require.NoError(t, store.Dnc().Upsert(&models.DncEntry{Value: "blocked@example.com", Reason: "unsubscribed"}))

	entry, err := store.Dnc().FindByValue("blocked@example.com")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "unsubscribed", entry.Reason)

	entry, err = store.Dnc().FindByValue("other@example.com")
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, store.Dnc().Remove("blocked@example.com"))
	entry, err = store.Dnc().FindByValue("blocked@example.com")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStore_ReadsReturnCopies(t *testing.T) {
	store := inmem.NewStore()
	require.NoError(t, store.Approval().Create(newApproval("a-1", models.ApprovalStatusApproved)))

	got, err := store.Approval().GetByID("a-1")
	require.NoError(t, err)
	got.Status = models.ApprovalStatusSent

	fresh, err := store.Approval().GetByID("a-1")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, fresh.Status)
}
