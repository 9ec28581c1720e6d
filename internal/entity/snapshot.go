package entity

import "time"

// SnapshotStatus tells whether a snapshot's counts came from the live page or from the last known values.
type SnapshotStatus string

const (
	StatusLive   SnapshotStatus = "live"
	StatusCached SnapshotStatus = "cached"
)

// Snapshot is one timestamped observation of a profile's counters.
// It mirrors one entry of the `history` collection.
type Snapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Username  string         `json:"username,omitempty"`
	Followers int64          `json:"followers"`
	Following int64          `json:"following"`
	Posts     int64          `json:"posts"`
	Status    SnapshotStatus `json:"status"`
	Error     string         `json:"error,omitempty"` // Only set when Status is cached
}

// IsCached reports whether the snapshot is a fallback rather than a live observation.
func (s Snapshot) IsCached() bool {
	return s.Status == StatusCached
}

// Age returns how long ago the snapshot was taken relative to now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}

// Value returns the counter for the given metric.
func (s Snapshot) Value(m Metric) int64 {
	switch m {
	case MetricFollowers:
		return s.Followers
	case MetricFollowing:
		return s.Following
	case MetricPosts:
		return s.Posts
	}
	return 0
}
