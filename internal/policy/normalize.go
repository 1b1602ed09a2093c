// Package policy evaluates the compliance gate: the do-not-contact
// registry and the send policy (channel enablement, time window, daily
// cap). Checks run at dispatch time, never trusted from draft time.
package policy

import (
	"strings"

	"github.com/leadpilot/outreach-router/internal/models"
)

// NormalizeEmail lower-cases and trims an email address. Case- and
// whitespace-insensitivity is deliberate: the compliance interpretation of
// the registry is strict, so "User@X.com " and "user@x.com" must match the
// same entry.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips every character that is not a digit or "+", so
// "+1 (555) 010-2030" and "+15550102030" match the same registry entry.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeDestination applies the channel-appropriate normalization rule.
// Email channels carry addresses; chat destinations are treated as phone
// style identifiers.
func NormalizeDestination(channel models.Channel, to string) string {
	if channel == models.ChannelEmail {
		return NormalizeEmail(to)
	}
	return NormalizePhone(to)
}
