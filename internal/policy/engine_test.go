package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadpilot/outreach-router/internal/models"
	"github.com/leadpilot/outreach-router/internal/policy"
)

type fakeDnc struct {
	entries map[string]*models.DncEntry
	err     error
}

func (f *fakeDnc) FindByValue(value string) (*models.DncEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[value], nil
}

// fakeReserver mimics the store-side counter: a conditional increment
// with a floor of zero on release.
type fakeReserver struct {
	taken int
	day   string
	err   error
}

func (f *fakeReserver) ReserveSendSlot(day string, limit int) (bool, error) {
	f.day = day
	if f.err != nil {
		return false, f.err
	}
	if f.taken >= limit {
		return false, nil
	}
	f.taken++
	return true, nil
}

func (f *fakeReserver) ReleaseSendSlot(day string) error {
	f.day = day
	if f.err != nil {
		return f.err
	}
	if f.taken > 0 {
		f.taken--
	}
	return nil
}

func openPolicy() models.SendPolicy {
	return models.SendPolicy{
		ApprovalRequired: true,
		EnabledChannels: map[models.Channel]bool{
			models.ChannelEmail: true,
			models.ChannelChat:  true,
		},
	}
}

func emailApproval(to string) *models.Approval {
	return &models.Approval{
		ID:      "a-1",
		LeadID:  "l-1",
		Channel: models.ChannelEmail,
		DraftTo: to,
		Status:  models.ApprovalStatusSending,
	}
}

func fixedClock(value string, loc *time.Location) policy.Option {
	t, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	if err != nil {
		panic(err)
	}
	return policy.WithClock(func() time.Time { return t })
}

func TestEngine_Evaluate_Dnc(t *testing.T) {
	tests := []struct {
		name     string
		entries  map[string]*models.DncEntry
		approval *models.Approval
		blocked  bool
		reason   string
	}{
		{
			name: "listed address is blocked",
			entries: map[string]*models.DncEntry{
				"blocked@example.com": {Value: "blocked@example.com", Reason: "unsubscribed"},
			},
			approval: emailApproval("blocked@example.com"),
			blocked:  true,
			reason:   "unsubscribed",
		},
		{
			name: "lookup is normalized before matching",
			entries: map[string]*models.DncEntry{
				"blocked@example.com": {Value: "blocked@example.com", Reason: "unsubscribed"},
			},
			approval: emailApproval(" Blocked@Example.COM "),
			blocked:  true,
			reason:   "unsubscribed",
		},
		{
			name: "unlisted address passes",
			entries: map[string]*models.DncEntry{
				"blocked@example.com": {Value: "blocked@example.com", Reason: "unsubscribed"},
			},
			approval: emailApproval("someone@example.com"),
			blocked:  false,
		},
		{
			name: "chat destination matched on phone rule",
			entries: map[string]*models.DncEntry{
				"+15550102030": {Value: "+15550102030", Reason: "complaint"},
			},
			approval: &models.Approval{
				ID:      "a-2",
				LeadID:  "l-2",
				Channel: models.ChannelChat,
				DraftTo: "+1 (555) 010-2030",
			},
			blocked: true,
			reason:  "complaint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := policy.NewEngine(&fakeDnc{entries: tt.entries}, &fakeReserver{})

			decision, err := engine.Evaluate(tt.approval, openPolicy())
			require.NoError(t, err)

			if tt.blocked {
				assert.False(t, decision.Allowed)
				assert.Equal(t, policy.BlockDnc, decision.Code)
				assert.Equal(t, tt.reason, decision.Reason)
				assert.True(t, decision.Terminal())
				assert.Equal(t, models.EventSendBlockedDnc, decision.EventType())
			} else {
				assert.True(t, decision.Allowed)
			}
		})
	}
}

func TestEngine_Evaluate_ChannelDisabled(t *testing.T) {
	pol := openPolicy()
	pol.EnabledChannels[models.ChannelEmail] = false

	engine := policy.NewEngine(&fakeDnc{}, &fakeReserver{})

	decision, err := engine.Evaluate(emailApproval("user@example.com"), pol)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, policy.BlockChannelDisabled, decision.Code)
	assert.True(t, decision.Terminal())
	assert.Equal(t, models.EventSendBlockedChannel, decision.EventType())
}

func TestEngine_Evaluate_Window(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tests := []struct {
		name    string
		window  models.SendWindow
		now     string
		allowed bool
	}{
		{
			name:    "inside window",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "09:00", End: "18:00"},
			now:     "2026-03-02 12:30",
			allowed: true,
		},
		{
			name:    "start boundary is inclusive",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "09:00", End: "18:00"},
			now:     "2026-03-02 09:00",
			allowed: true,
		},
		{
			name:    "end boundary is inclusive",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "09:00", End: "18:00"},
			now:     "2026-03-02 18:00",
			allowed: true,
		},
		{
			name:    "one minute past the end",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "09:00", End: "18:00"},
			now:     "2026-03-02 18:01",
			allowed: false,
		},
		{
			name:    "one minute before the start",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "09:00", End: "18:00"},
			now:     "2026-03-02 08:59",
			allowed: false,
		},
		{
			name:    "overnight window, late evening",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "22:00", End: "06:00"},
			now:     "2026-03-02 23:15",
			allowed: true,
		},
		{
			name:    "overnight window, early morning",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "22:00", End: "06:00"},
			now:     "2026-03-02 05:30",
			allowed: true,
		},
		{
			name:    "overnight window, midday",
			window:  models.SendWindow{Timezone: "America/New_York", Start: "22:00", End: "06:00"},
			now:     "2026-03-02 12:00",
			allowed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol := openPolicy()
			window := tt.window
			pol.Window = &window

			engine := policy.NewEngine(&fakeDnc{}, &fakeReserver{}, fixedClock(tt.now, loc))

			decision, err := engine.Evaluate(emailApproval("user@example.com"), pol)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, policy.BlockOutsideWindow, decision.Code)
				assert.False(t, decision.Terminal())
				assert.Equal(t, models.EventSendBlockedWindow, decision.EventType())
			}
		})
	}
}

func TestEngine_Evaluate_WindowTimezone(t *testing.T) {
	// 20:00 UTC is 15:00 in New York during March: inside a 09:00-18:00
	// New York window even though the UTC clock reads past 18:00.
	pol := openPolicy()
	pol.Window = &models.SendWindow{Timezone: "America/New_York", Start: "09:00", End: "18:00"}

	engine := policy.NewEngine(&fakeDnc{}, &fakeReserver{}, fixedClock("2026-03-02 20:00", time.UTC))

	decision, err := engine.Evaluate(emailApproval("user@example.com"), pol)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEngine_ReserveCapSlot(t *testing.T) {
	tests := []struct {
		name    string
		cap     int
		taken   int
		allowed bool
	}{
		{name: "below cap", cap: 100, taken: 99, allowed: true},
		{name: "at cap", cap: 100, taken: 100, allowed: false},
		{name: "above cap", cap: 100, taken: 150, allowed: false},
		{name: "zero cap disables the check", cap: 0, taken: 100000, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol := openPolicy()
			pol.DailySendCap = tt.cap

			engine := policy.NewEngine(&fakeDnc{}, &fakeReserver{taken: tt.taken})

			decision, err := engine.ReserveCapSlot(pol)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, policy.BlockCapReached, decision.Code)
				assert.False(t, decision.Terminal())
				assert.Equal(t, models.EventSendBlockedCap, decision.EventType())
			}
		})
	}
}

func TestEngine_CapSlotRoundtrip(t *testing.T) {
	pol := openPolicy()
	pol.DailySendCap = 1

	reserver := &fakeReserver{}
	engine := policy.NewEngine(&fakeDnc{}, reserver)

	first, err := engine.ReserveCapSlot(pol)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := engine.ReserveCapSlot(pol)
	require.NoError(t, err)
	assert.False(t, second.Allowed)

	// A returned slot frees the cap again, so a failed send does not
	// burn a unit of it.
	require.NoError(t, engine.ReleaseCapSlot(pol))

	third, err := engine.ReserveCapSlot(pol)
	require.NoError(t, err)
	assert.True(t, third.Allowed)
}

func TestEngine_ReserveCapSlot_UsesPolicyLocalDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	pol := openPolicy()
	pol.DailySendCap = 10
	pol.Window = &models.SendWindow{Timezone: "America/New_York", Start: "00:00", End: "23:59"}

	// 23:30 in New York is already the next day in UTC; the counter must
	// key on the policy's local day so the cap resets at local midnight.
	reserver := &fakeReserver{}
	engine := policy.NewEngine(&fakeDnc{}, reserver, fixedClock("2026-03-02 23:30", loc))

	_, err = engine.ReserveCapSlot(pol)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", reserver.day)
}

func TestEngine_Evaluate_CheckOrder(t *testing.T) {
	// A draft that fails every check reports the DNC block: the registry
	// check runs before channel and window, and a blocked draft never
	// touches the cap counter.
	loc := time.UTC
	pol := models.SendPolicy{
		DailySendCap:    1,
		Window:          &models.SendWindow{Timezone: "UTC", Start: "09:00", End: "10:00"},
		EnabledChannels: map[models.Channel]bool{},
	}

	dnc := &fakeDnc{entries: map[string]*models.DncEntry{
		"user@example.com": {Value: "user@example.com", Reason: "unsubscribed"},
	}}
	reserver := &fakeReserver{}
	engine := policy.NewEngine(dnc, reserver, fixedClock("2026-03-02 03:00", loc))

	decision, err := engine.Evaluate(emailApproval("user@example.com"), pol)
	require.NoError(t, err)
	assert.Equal(t, policy.BlockDnc, decision.Code)
	assert.Zero(t, reserver.taken)
}

func TestEngine_Evaluate_StoreFailures(t *testing.T) {
	t.Run("dnc lookup failure surfaces as error", func(t *testing.T) {
		engine := policy.NewEngine(&fakeDnc{err: errors.New("db down")}, &fakeReserver{})

		_, err := engine.Evaluate(emailApproval("user@example.com"), openPolicy())
		assert.Error(t, err)
	})

	t.Run("cap reservation failure surfaces as error", func(t *testing.T) {
		pol := openPolicy()
		pol.DailySendCap = 10

		engine := policy.NewEngine(&fakeDnc{}, &fakeReserver{err: errors.New("db down")})

		_, err := engine.ReserveCapSlot(pol)
		assert.Error(t, err)
	})

	t.Run("invalid window timezone surfaces as error", func(t *testing.T) {
		pol := openPolicy()
		pol.Window = &models.SendWindow{Timezone: "Mars/Olympus", Start: "09:00", End: "18:00"}

		engine := policy.NewEngine(&fakeDnc{}, &fakeReserver{})

		_, err := engine.Evaluate(emailApproval("user@example.com"), pol)
		assert.Error(t, err)
	})
}
