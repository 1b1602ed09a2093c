package channel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/channel"
	"github.com/leadpilot/outreach-router/internal/config"
)

func TestEmailAdapter_Send_InvalidRecipient(t *testing.T) {
	adapter := channel.NewEmailAdapter(config.EmailChannelConfig{
		Host: "localhost",
		Port: 2525,
		From: "outreach@example.com",
	})

	tests := []string{"not-an-email", "missing-at.example.com", "@no-local-part.com"}

	for _, to := range tests {
		t.Run(to, func(t *testing.T) {
			_, err := adapter.Send(context.Background(), channel.Message{To: to, Text: "hi"})
			require.Error(t, err)
			assert.True(t, apperrors.IsPermanent(err), "a malformed recipient must never be retried")
		})
	}
}

func TestEmailAdapter_Send_DialFailureIsTransient(t *testing.T) {
	// Nothing listens on this port; the dial error must come back
	// retryable so the draft is not lost.
	adapter := channel.NewEmailAdapter(config.EmailChannelConfig{
		Host: "127.0.0.1",
		Port: 1,
		From: "outreach@example.com",
	})

	_, err := adapter.Send(context.Background(), channel.Message{To: "user@example.com", Text: "hi"})
	require.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
}
