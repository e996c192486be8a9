package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusguessr/scoreserver/internal/domain"
)

var testZone = time.FixedZone("EST", -5*60*60)

func testPolicy() Policy {
	return Policy{
		ResetHour:     16,
		AnchorWeekday: time.Sunday,
		Location:      testZone,
	}
}

// at builds an instant in the test zone. 2026-08-26 is a Wednesday.
func at(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, testZone)
}

func TestDailyStart_BeforeResetHour(t *testing.T) {
	p := testPolicy()

	// At 3:59pm the window is still anchored at yesterday 4pm
	now := at(2026, time.August, 26, 15, 59)
	start := p.DailyStart(now)
	require.Equal(t, at(2026, time.August, 25, 16, 0), start)

	// A record submitted yesterday at 4:05pm falls inside the window
	record := at(2026, time.August, 25, 16, 5)
	require.False(t, record.Before(start))
}

func TestDailyStart_AfterResetHour(t *testing.T) {
	p := testPolicy()

	// At 4:01pm the window re-anchors to today 4pm
	now := at(2026, time.August, 26, 16, 1)
	start := p.DailyStart(now)
	require.Equal(t, at(2026, time.August, 26, 16, 0), start)

	// Yesterday's 3:00pm record is now outside the window
	record := at(2026, time.August, 25, 15, 0)
	require.True(t, record.Before(start))
}

func TestDailyStart_ExactlyAtResetHour(t *testing.T) {
	p := testPolicy()

	// The boundary is inclusive: at exactly 4pm the window starts now
	now := at(2026, time.August, 26, 16, 0)
	start := p.DailyStart(now)
	require.Equal(t, now, start)
	require.False(t, now.Before(start))
}

func TestDailyStart_MidnightReset(t *testing.T) {
	p := testPolicy()
	p.ResetHour = 0

	now := at(2026, time.August, 26, 13, 30)
	require.Equal(t, at(2026, time.August, 26, 0, 0), p.DailyStart(now))
}

func TestDailyStart_ConvertsToPolicyZone(t *testing.T) {
	p := testPolicy()

	// 2026-08-26 22:30 UTC is 17:30 EST, so the window anchors today
	now := time.Date(2026, time.August, 26, 22, 30, 0, 0, time.UTC)
	require.Equal(t, at(2026, time.August, 26, 16, 0), p.DailyStart(now))

	// 20:30 UTC is 15:30 EST, still yesterday's window
	now = time.Date(2026, time.August, 26, 20, 30, 0, 0, time.UTC)
	require.Equal(t, at(2026, time.August, 25, 16, 0), p.DailyStart(now))
}

func TestWeeklyStart_MidWeek(t *testing.T) {
	p := testPolicy()

	// Wednesday afternoon anchors at the previous Sunday 4pm
	now := at(2026, time.August, 26, 12, 0)
	require.Equal(t, at(2026, time.August, 23, 16, 0), p.WeeklyStart(now))
}

func TestWeeklyStart_AnchorDayBeforeResetHour(t *testing.T) {
	p := testPolicy()

	// Sunday 3:59pm: the window has not rolled over yet
	now := at(2026, time.August, 23, 15, 59)
	require.Equal(t, at(2026, time.August, 16, 16, 0), p.WeeklyStart(now))
}

func TestWeeklyStart_AnchorDayAtResetHour(t *testing.T) {
	p := testPolicy()

	// Sunday 4pm exactly: the window rolls over at this instant
	now := at(2026, time.August, 23, 16, 0)
	require.Equal(t, now, p.WeeklyStart(now))

	// One second earlier belongs to the previous window
	before := now.Add(-time.Second)
	require.True(t, before.Before(p.WeeklyStart(now)))
}

func TestWeeklyStart_CustomAnchorWeekday(t *testing.T) {
	p := testPolicy()
	p.AnchorWeekday = time.Monday

	// Wednesday anchors at Monday this week
	now := at(2026, time.August, 26, 12, 0)
	require.Equal(t, at(2026, time.August, 24, 16, 0), p.WeeklyStart(now))

	// Monday morning still belongs to the previous week's window
	now = at(2026, time.August, 24, 9, 0)
	require.Equal(t, at(2026, time.August, 17, 16, 0), p.WeeklyStart(now))
}

func TestWeeklyStart_SpansDSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	p := Policy{ResetHour: 16, AnchorWeekday: time.Sunday, Location: loc}

	// US DST ends 2026-11-01. The following Wednesday's weekly anchor
	// must still be Sunday at 4pm wall-clock, not 3pm or 5pm.
	now := time.Date(2026, time.November, 4, 12, 0, 0, 0, loc)
	start := p.WeeklyStart(now)
	require.Equal(t, time.Sunday, start.Weekday())
	require.Equal(t, 16, start.Hour())
	require.Equal(t, 1, start.Day())
}

func TestStart_Timeframes(t *testing.T) {
	p := testPolicy()
	now := at(2026, time.August, 26, 18, 0)

	_, bounded := p.Start(domain.TimeframeAll, now)
	require.False(t, bounded)

	start, bounded := p.Start(domain.TimeframeDaily, now)
	require.True(t, bounded)
	require.Equal(t, p.DailyStart(now), start)

	start, bounded = p.Start(domain.TimeframeWeekly, now)
	require.True(t, bounded)
	require.Equal(t, p.WeeklyStart(now), start)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(0, time.Sunday, testZone)
	require.NoError(t, err)
	require.Equal(t, 0, p.ResetHour)

	_, err = NewPolicy(24, time.Sunday, testZone)
	require.Error(t, err)

	_, err = NewPolicy(-1, time.Sunday, testZone)
	require.Error(t, err)

	_, err = NewPolicy(16, time.Sunday, nil)
	require.Error(t, err)
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("Sunday")
	require.NoError(t, err)
	require.Equal(t, time.Sunday, d)

	d, err = ParseWeekday("monday")
	require.NoError(t, err)
	require.Equal(t, time.Monday, d)

	_, err = ParseWeekday("Someday")
	require.Error(t, err)
}
