package response

import "github.com/user/follower-tracker/internal/entity"

// RefreshResponse is returned by POST /api/refresh.
type RefreshResponse struct {
	Latest entity.Snapshot `json:"latest"`
	Events []entity.Event  `json:"events"` // Newest first
}

// HealthResponse is returned by GET /api/health. Store is "available" or "unavailable".
type HealthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Backend string `json:"backend"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
