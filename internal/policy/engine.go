package policy

import (
	"fmt"
	"time"

	"github.com/leadpilot/outreach-router/internal/models"
)

// BlockCode identifies which check rejected a dispatch.
type BlockCode string

const (
	BlockDnc             BlockCode = "dnc"
	BlockChannelDisabled BlockCode = "channel_disabled"
	BlockOutsideWindow   BlockCode = "outside_window"
	BlockCapReached      BlockCode = "cap_reached"
)

// Decision is the outcome of one policy evaluation.
type Decision struct {
	Allowed bool
	Code    BlockCode
	Reason  string
}

// Terminal reports whether the block requires human re-approval. DNC and
// channel-disabled blocks are compliance decisions that stand until a
// human intervenes; window and cap blocks clear on their own with the
// clock, so the item stays eligible for a later cycle.
func (d Decision) Terminal() bool {
	return d.Code == BlockDnc || d.Code == BlockChannelDisabled
}

// EventType maps a block code to its audit event type.
func (d Decision) EventType() models.EventType {
	switch d.Code {
	case BlockDnc:
		return models.EventSendBlockedDnc
	case BlockChannelDisabled:
		return models.EventSendBlockedChannel
	case BlockOutsideWindow:
		return models.EventSendBlockedWindow
	case BlockCapReached:
		return models.EventSendBlockedCap
	}
	return ""
}

var allowed = Decision{Allowed: true}

// DncLookup is the slice of the persistence contract the engine reads the
// registry through. Satisfied by repository.DncRepository.
type DncLookup interface {
	FindByValue(value string) (*models.DncEntry, error)
}

// SlotReserver is the slice of the persistence contract the engine takes
// daily-cap slots through. Satisfied by repository.CounterRepository.
type SlotReserver interface {
	ReserveSendSlot(day string, limit int) (bool, error)
	ReleaseSendSlot(day string) error
}

// Engine runs the composed compliance checks. The check order is fixed:
// DNC, then channel enablement, then time window, then daily cap. The DNC
// check runs first because it is the compliance-critical one; evaluation
// short-circuits on the first failing check. The cap check is not a read:
// it is a reservation against a store-side counter, so concurrent
// dispatchers cannot each observe room under the cap and all send.
type Engine struct {
	dnc      DncLookup
	counters SlotReserver
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(dnc DncLookup, counters SlotReserver, opts ...Option) *Engine {
	e := &Engine{
		dnc:      dnc,
		counters: counters,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs the DNC, channel and window checks. The daily cap is
// taken separately through ReserveCapSlot once these pass. A non-nil
// error means a check could not be run (store failure), not that the
// dispatch was blocked.
func (e *Engine) Evaluate(approval *models.Approval, pol models.SendPolicy) (Decision, error) {
	normalized := NormalizeDestination(approval.Channel, approval.DraftTo)
	entry, err := e.dnc.FindByValue(normalized)
	if err != nil {
		return Decision{}, fmt.Errorf("dnc lookup failed: %w", err)
	}
	if entry != nil {
		return Decision{Code: BlockDnc, Reason: entry.Reason}, nil
	}

	if !pol.ChannelEnabled(approval.Channel) {
		return Decision{
			Code:   BlockChannelDisabled,
			Reason: fmt.Sprintf("channel %s is disabled by policy", approval.Channel),
		}, nil
	}

	if pol.Window != nil {
		inside, err := e.insideWindow(*pol.Window)
		if err != nil {
			return Decision{}, err
		}
		if !inside {
			return Decision{
				Code: BlockOutsideWindow,
				Reason: fmt.Sprintf("outside send window %s-%s %s",
					pol.Window.Start, pol.Window.End, pol.Window.Timezone),
			}, nil
		}
	}

	return allowed, nil
}

// ReserveCapSlot takes one unit of today's send cap, or reports the cap
// block when no unit is left. The increment is a conditional write in the
// store, not a read followed by a send, so two routers racing for the
// last slot cannot both dispatch. Always allowed when no cap is
// configured.
func (e *Engine) ReserveCapSlot(pol models.SendPolicy) (Decision, error) {
	if pol.DailySendCap <= 0 {
		return allowed, nil
	}

	day, err := e.localDay(pol)
	if err != nil {
		return Decision{}, err
	}

	ok, err := e.counters.ReserveSendSlot(day, pol.DailySendCap)
	if err != nil {
		return Decision{}, fmt.Errorf("cap reservation failed: %w", err)
	}
	if !ok {
		return Decision{
			Code:   BlockCapReached,
			Reason: fmt.Sprintf("daily send cap of %d reached", pol.DailySendCap),
		}, nil
	}
	return allowed, nil
}

// ReleaseCapSlot returns a reserved slot after a send that did not land,
// so failed attempts never consume the cap.
func (e *Engine) ReleaseCapSlot(pol models.SendPolicy) error {
	if pol.DailySendCap <= 0 {
		return nil
	}

	day, err := e.localDay(pol)
	if err != nil {
		return err
	}
	return e.counters.ReleaseSendSlot(day)
}

// insideWindow checks the current instant against the window's local
// clock, inclusive at both ends. A window with Start > End spans midnight.
func (e *Engine) insideWindow(window models.SendWindow) (bool, error) {
	loc, err := time.LoadLocation(window.Timezone)
	if err != nil {
		return false, fmt.Errorf("invalid window timezone %q: %w", window.Timezone, err)
	}

	start, err := parseHHMM(window.Start)
	if err != nil {
		return false, err
	}
	end, err := parseHHMM(window.End)
	if err != nil {
		return false, err
	}

	local := e.now().In(loc)
	minute := local.Hour()*60 + local.Minute()

	if start <= end {
		return minute >= start && minute <= end, nil
	}
	return minute >= start || minute <= end, nil
}

// localDay is the calendar day in the policy timezone (UTC when no
// window is configured); it keys the daily send counter, so the cap
// window resets at local midnight.
func (e *Engine) localDay(pol models.SendPolicy) (string, error) {
	loc := time.UTC
	if pol.Window != nil {
		l, err := time.LoadLocation(pol.Window.Timezone)
		if err != nil {
			return "", fmt.Errorf("invalid window timezone %q: %w", pol.Window.Timezone, err)
		}
		loc = l
	}

	return e.now().In(loc).Format("2006-01-02"), nil
}

func parseHHMM(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid window time %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
