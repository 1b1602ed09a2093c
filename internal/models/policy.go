package models

// SendWindow restricts dispatch to a local-time interval, inclusive at
// both ends. Start and End are "HH:MM" in the named IANA timezone.
type SendWindow struct {
	Timezone string `json:"timezone"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// SendPolicy is the compliance configuration evaluated before every
// dispatch. It is loaded from configuration, may be hot-reloaded, and is
// always read fresh at evaluation time rather than cached from draft time.
type SendPolicy struct {
	ApprovalRequired bool             `json:"approval_required"`
	DailySendCap     int              `json:"daily_send_cap"`
	Window           *SendWindow      `json:"window,omitempty"`
	EnabledChannels  map[Channel]bool `json:"enabled_channels"`
}

// ChannelEnabled reports whether the policy allows dispatch on ch.
func (p SendPolicy) ChannelEnabled(ch Channel) bool {
	return p.EnabledChannels[ch]
}
