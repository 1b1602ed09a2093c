// Package channel defines the outbound delivery abstraction: one adapter
// per channel, each exposing a uniform Send. Network specifics stay fully
// isolated inside each adapter so the router never learns provider
// details and each channel is independently testable with a fake.
package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/leadpilot/outreach-router/internal/models"
)

// Message is the channel-agnostic outbound payload.
type Message struct {
	To       string
	Subject  string
	Text     string
	Campaign string
}

// SendResult carries the provider-assigned message id.
type SendResult struct {
	MessageID string
}

// Adapter sends one message on one channel. Failures are reported as
// apperrors.ChannelError so the router can tell retryable from terminal.
type Adapter interface {
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// Registry maps channels to adapter instances. Populated at wiring time
// and read-only afterwards; the router holds it by injection.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.Channel]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[models.Channel]Adapter),
	}
}

// Register binds an adapter to a channel. Registering the same channel
// twice is a wiring bug and fails loudly.
func (r *Registry) Register(ch models.Channel, adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[ch]; exists {
		return fmt.Errorf("adapter for channel %q already registered", ch)
	}
	r.adapters[ch] = adapter
	return nil
}

// Get returns the adapter for a channel, if one is registered.
func (r *Registry) Get(ch models.Channel) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[ch]
	return adapter, ok
}
