package entity

import "time"

// Metric names a counter that can be monitored for change.
type Metric string

const (
	MetricFollowers Metric = "followers"
	MetricFollowing Metric = "following"
	MetricPosts     Metric = "posts"
)

// EventType identifies the kind of change an Event records.
type EventType string

const (
	EventFollowerGain  EventType = "follower_gain"
	EventFollowerLoss  EventType = "follower_loss"
	EventFollowingGain EventType = "following_gain"
	EventFollowingLoss EventType = "following_loss"
	EventPostsGain     EventType = "posts_gain"
	EventPostsLoss     EventType = "posts_loss"
)

// EventTypeFor returns the gain or loss event type for a metric.
func EventTypeFor(m Metric, gain bool) EventType {
	switch m {
	case MetricFollowers:
		if gain {
			return EventFollowerGain
		}
		return EventFollowerLoss
	case MetricFollowing:
		if gain {
			return EventFollowingGain
		}
		return EventFollowingLoss
	default:
		if gain {
			return EventPostsGain
		}
		return EventPostsLoss
	}
}

// Event is a derived change record between two consecutive distinct snapshots.
// Timestamp is copied from the snapshot that caused it.
type Event struct {
	Type      EventType `json:"type"`
	Diff      int64     `json:"diff"`
	Timestamp time.Time `json:"timestamp"`
	Value     int64     `json:"value"`
}
