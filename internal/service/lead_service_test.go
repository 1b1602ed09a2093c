package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/repository/inmem"
	"github.com/leadpilot/outreach-router/internal/service"
)

func TestLeadService_CreateLead(t *testing.T) {
	store := inmem.NewStore()
	svc := service.NewLeadService(store, zap.NewNop())

	t.Run("defaults filled", func(t *testing.T) {
		lead, err := svc.CreateLead(context.Background(), &models.Lead{
			FirstName: "Ada",
			Email:     "ada@example.com",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, lead.ID)
		assert.Equal(t, models.LeadStatusNew, lead.Status)
	})

	t.Run("needs a contact point", func(t *testing.T) {
		_, err := svc.CreateLead(context.Background(), &models.Lead{FirstName: "Nobody"})
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestLeadService_Contacts(t *testing.T) {
	store := inmem.NewStore()
	svc := service.NewLeadService(store, zap.NewNop())

	contact, err := svc.SetLeadContact(context.Background(), "lead-1", "chat", "chat-user-77")
	require.NoError(t, err)
	assert.Equal(t, models.ChannelChat, contact.Channel)
	assert.Equal(t, "chat-user-77", contact.ExternalID)

	// A second write for the same lead and channel replaces the mapping.
	_, err = svc.SetLeadContact(context.Background(), "lead-1", "chat", "chat-user-88")
	require.NoError(t, err)

	contacts, err := svc.ListContacts(context.Background())
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "chat-user-88", contacts[0].ExternalID)

	t.Run("validation", func(t *testing.T) {
		_, err := svc.SetLeadContact(context.Background(), "lead-1", "fax", "x-1")
		assert.True(t, apperrors.IsValidation(err))

		_, err = svc.SetLeadContact(context.Background(), "", "chat", "x-1")
		assert.True(t, apperrors.IsValidation(err))

		_, err = svc.SetLeadContact(context.Background(), "lead-1", "chat", "")
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestLeadService_ListLeadEvents(t *testing.T) {
	store := inmem.NewStore()
	svc := service.NewLeadService(store, zap.NewNop())

	lead, err := svc.CreateLead(context.Background(), &models.Lead{Email: "ada@example.com"})
	require.NoError(t, err)

	require.NoError(t, store.Event().Append(&models.EventRow{
		ID:      "e-1",
		LeadID:  lead.ID,
		Channel: models.ChannelEmail,
		Type:    models.EventSendSucceeded,
	}))
	require.NoError(t, store.Event().Append(&models.EventRow{
		ID:      "e-2",
		LeadID:  "someone-else",
		Channel: models.ChannelEmail,
		Type:    models.EventSendSucceeded,
	}))

	events, err := svc.ListLeadEvents(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e-1", events[0].ID)
}
