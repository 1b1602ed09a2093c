package channel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/channel"
	"github.com/leadpilot/outreach-router/internal/config"
)

func newChatAdapter(url string) *channel.ChatAdapter {
	return channel.NewChatAdapter(config.ChatChannelConfig{
		URL:     url,
		AuthKey: "test-key",
		Timeout: 5,
	})
}

func TestChatAdapter_Send_Success(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("X-Auth-Key")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"queued","messageId":"msg-42"}`))
	}))
	defer server.Close()

	adapter := newChatAdapter(server.URL)
	result, err := adapter.Send(context.Background(), channel.Message{
		To:       "+15550102030",
		Text:     "hello",
		Campaign: "spring-launch",
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-42", result.MessageID)
	assert.Equal(t, "test-key", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "+15550102030", gotBody["to"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, "spring-launch", gotBody["campaign"])
}

func TestChatAdapter_Send_MintsIDWhenResponseLacksOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	adapter := newChatAdapter(server.URL)
	result, err := adapter.Send(context.Background(), channel.Message{To: "+15550102030", Text: "hi"})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.MessageID, "chat-"))
}

func TestChatAdapter_Send_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		permanent bool
	}{
		{name: "server error is transient", status: http.StatusInternalServerError, permanent: false},
		{name: "bad gateway is transient", status: http.StatusBadGateway, permanent: false},
		{name: "rate limited is transient", status: http.StatusTooManyRequests, permanent: false},
		{name: "request timeout is transient", status: http.StatusRequestTimeout, permanent: false},
		{name: "bad request is permanent", status: http.StatusBadRequest, permanent: true},
		{name: "unauthorized is permanent", status: http.StatusUnauthorized, permanent: true},
		{name: "unprocessable is permanent", status: http.StatusUnprocessableEntity, permanent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			adapter := newChatAdapter(server.URL)
			_, err := adapter.Send(context.Background(), channel.Message{To: "+15550102030", Text: "hi"})

			require.Error(t, err)
			assert.Equal(t, tt.permanent, apperrors.IsPermanent(err))
		})
	}
}

func TestChatAdapter_Send_TransportErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	adapter := newChatAdapter(server.URL)
	_, err := adapter.Send(context.Background(), channel.Message{To: "+15550102030", Text: "hi"})

	require.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
}

func TestChatAdapter_Send_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapter := newChatAdapter(server.URL)
	_, err := adapter.Send(ctx, channel.Message{To: "+15550102030", Text: "hi"})

	require.Error(t, err)
	assert.False(t, apperrors.IsPermanent(err))
}
