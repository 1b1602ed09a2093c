package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leadpilot/outreach-router/internal/apperrors"
	"github.com/leadpilot/outreach-router/internal/config"
)

type chatSendRequest struct {
	To       string `json:"to"`
	Text     string `json:"text"`
	Campaign string `json:"campaign,omitempty"`
}

type chatSendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// ChatAdapter delivers messages to a chat platform through its JSON
// webhook endpoint.
type ChatAdapter struct {
	url        string
	authKey    string
	httpClient *http.Client
}

func NewChatAdapter(cfg config.ChatChannelConfig) *ChatAdapter {
	return &ChatAdapter{
		url:     cfg.URL,
		authKey: cfg.AuthKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// Send posts the message to the chat provider. 5xx, 408 and 429 responses
// and transport errors are transient; any other non-2xx status means the
// provider rejected the recipient or content and is permanent.
func (a *ChatAdapter) Send(ctx context.Context, msg Message) (SendResult, error) {
	body, err := json.Marshal(chatSendRequest{
		To:       msg.To,
		Text:     msg.Text,
		Campaign: msg.Campaign,
	})
	if err != nil {
		return SendResult{}, apperrors.NewPermanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewBuffer(body))
	if err != nil {
		return SendResult{}, apperrors.NewPermanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Key", a.authKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return SendResult{}, apperrors.NewTransient(fmt.Errorf("chat request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		// fall through to decode
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		return SendResult{}, apperrors.NewTransient(fmt.Errorf("chat provider returned %d", resp.StatusCode))
	default:
		return SendResult{}, apperrors.NewPermanent(fmt.Errorf("chat provider rejected message with %d", resp.StatusCode))
	}

	var chatResp chatSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil || chatResp.MessageID == "" {
		// Accepted but no usable id in the body; mint one so the audit
		// trail still carries a reference.
		return SendResult{MessageID: fmt.Sprintf("chat-%s", uuid.New().String())}, nil
	}

	return SendResult{MessageID: chatResp.MessageID}, nil
}
