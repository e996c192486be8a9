package domain

// GameInstance is a named, independently scoped leaderboard variant
// (e.g. "public", "classic", "orientation"). Instances are provisioned
// out of band; the service only ever reads them. Inactive instances are
// invisible to both ingestion and queries.
type GameInstance struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}
