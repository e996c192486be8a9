// Package window computes the lower time boundary for daily and weekly
// leaderboards. Boards do not reset at midnight: the daily board rolls
// over at a fixed local civil hour, and the weekly board at that hour on
// a fixed weekday. All arithmetic happens in a single IANA zone so the
// reset stays at the same wall-clock moment across DST transitions.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusguessr/scoreserver/internal/domain"
)

// Policy describes when leaderboard windows roll over
type Policy struct {
	// ResetHour is the local hour of day (0-23) at which windows re-anchor
	ResetHour int

	// AnchorWeekday is the day the weekly window rolls over
	AnchorWeekday time.Weekday

	// Location is the zone whose civil time the reset hour refers to
	Location *time.Location
}

// NewPolicy builds a Policy, rejecting hours outside the civil range.
// An out-of-range hour would otherwise normalize silently via time.Date
// (24 becomes next-day midnight).
func NewPolicy(resetHour int, anchor time.Weekday, loc *time.Location) (Policy, error) {
	if resetHour < 0 || resetHour > 23 {
		return Policy{}, fmt.Errorf("reset hour %d out of range 0-23", resetHour)
	}
	if loc == nil {
		return Policy{}, fmt.Errorf("location is required")
	}
	return Policy{ResetHour: resetHour, AnchorWeekday: anchor, Location: loc}, nil
}

// Start returns the inclusive lower boundary for records eligible under
// the given timeframe at time now. The second return is false when the
// timeframe has no lower bound (all-time).
func (p Policy) Start(tf domain.Timeframe, now time.Time) (time.Time, bool) {
	switch tf {
	case domain.TimeframeDaily:
		return p.DailyStart(now), true
	case domain.TimeframeWeekly:
		return p.WeeklyStart(now), true
	default:
		return time.Time{}, false
	}
}

// DailyStart returns the most recent reset instant: today's reset hour if
// now is at or past it, otherwise yesterday's. A record submitted exactly
// at the reset instant belongs to the window that starts there.
func (p Policy) DailyStart(now time.Time) time.Time {
	local := now.In(p.Location)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), p.ResetHour, 0, 0, 0, p.Location)
	if local.Before(anchor) {
		anchor = anchor.AddDate(0, 0, -1)
	}
	return anchor
}

// WeeklyStart returns the most recent occurrence of the anchor weekday at
// the reset hour. On the anchor weekday itself the window has not rolled
// over until the reset hour is reached.
func (p Policy) WeeklyStart(now time.Time) time.Time {
	local := now.In(p.Location)
	back := (int(local.Weekday()) - int(p.AnchorWeekday) + 7) % 7
	anchor := time.Date(local.Year(), local.Month(), local.Day(), p.ResetHour, 0, 0, 0, p.Location)
	anchor = anchor.AddDate(0, 0, -back)
	if local.Before(anchor) {
		anchor = anchor.AddDate(0, 0, -7)
	}
	return anchor
}

// ParseWeekday converts a config weekday name to time.Weekday
func ParseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
