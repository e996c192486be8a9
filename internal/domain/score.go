package domain

import "time"

// MaxTotalScore is the anti-cheat ceiling for a session total. The game
// awards at most 1000 points per round, so any higher total is fabricated.
const MaxTotalScore = 5000

// DefaultInstance is the game instance used when a client does not name one.
const DefaultInstance = "public"

// Timeframe selects the ranking window for a leaderboard query
type Timeframe string

const (
	TimeframeAll    Timeframe = "all"
	TimeframeDaily  Timeframe = "daily"
	TimeframeWeekly Timeframe = "weekly"
)

// ParseTimeframe validates a client-supplied timeframe string.
// An empty string selects the all-time leaderboard.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case "", TimeframeAll:
		return TimeframeAll, nil
	case TimeframeDaily:
		return TimeframeDaily, nil
	case TimeframeWeekly:
		return TimeframeWeekly, nil
	default:
		return "", ErrInvalidTimeframe
	}
}

// Coordinate is a point on the campus map
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RoundResult holds per-round detail for a session. It is informational
// only and never used in ranking.
type RoundResult struct {
	Round  int        `json:"round"`
	Guess  Coordinate `json:"guess"`
	Actual Coordinate `json:"actual"`
	Score  int        `json:"score"`
}

// ScoreSubmission represents a request to record a completed session.
// Score is a pointer so that an absent field is distinguishable from zero.
type ScoreSubmission struct {
	Name         string        `json:"name"`
	Score        *float64      `json:"score"`
	RoundsData   []RoundResult `json:"roundsData,omitempty"`
	GameInstance string        `json:"gameInstance,omitempty"`
}

// ScoreRecord is one persisted game session. Records are immutable once
// written; submitted_at is assigned by the store at insert time.
type ScoreRecord struct {
	ID             int64         `json:"id"`
	GameInstanceID int64         `json:"game_instance_id"`
	PlayerName     string        `json:"player_name"`
	TotalScore     int           `json:"total_score"`
	RoundsData     []RoundResult `json:"rounds_data,omitempty"`
	SubmittedAt    time.Time     `json:"submitted_at"`
}

// LeaderboardEntry is one row of a leaderboard response
type LeaderboardEntry struct {
	Name  string    `json:"name"`
	Score int       `json:"score"`
	Date  time.Time `json:"date"`
}
