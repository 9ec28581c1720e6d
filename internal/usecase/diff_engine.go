package usecase

import (
	"fmt"
	"strings"

	"github.com/user/follower-tracker/internal/entity"
)

// canonicalMetrics is the order in which events are emitted.
var canonicalMetrics = []entity.Metric{entity.MetricFollowers, entity.MetricFollowing, entity.MetricPosts}

// DefaultMonitoredMetrics are compared when no policy is configured.
var DefaultMonitoredMetrics = []entity.Metric{entity.MetricFollowers, entity.MetricFollowing}

// DiffEngine decides whether a snapshot is a change worth persisting and derives its events.
type DiffEngine struct {
	monitored map[entity.Metric]bool
}

// NewDiffEngine creates a diff engine comparing the given metrics.
// With no metrics it falls back to DefaultMonitoredMetrics.
func NewDiffEngine(monitored ...entity.Metric) *DiffEngine {
	if len(monitored) == 0 {
		monitored = DefaultMonitoredMetrics
	}
	set := make(map[entity.Metric]bool, len(monitored))
	for _, m := range monitored {
		set[m] = true
	}
	return &DiffEngine{monitored: set}
}

// ParseMetrics converts configured metric names into entity.Metric values.
func ParseMetrics(names []string) ([]entity.Metric, error) {
	out := make([]entity.Metric, 0, len(names))
	for _, n := range names {
		m := entity.Metric(strings.ToLower(strings.TrimSpace(n)))
		switch m {
		case entity.MetricFollowers, entity.MetricFollowing, entity.MetricPosts:
			out = append(out, m)
		default:
			return nil, fmt.Errorf("unknown metric %q", n)
		}
	}
	return out, nil
}

// Evaluate compares newSnap against last. It returns true when newSnap should be persisted,
// along with one event per monitored metric that changed. A nil last means newSnap is the
// first observation: it is persisted and produces no events.
func (d *DiffEngine) Evaluate(newSnap entity.Snapshot, last *entity.Snapshot) (bool, []entity.Event) {
	if last == nil {
		return true, nil
	}

	var events []entity.Event
	for _, m := range canonicalMetrics {
		if !d.monitored[m] {
			continue
		}
		cur, prev := newSnap.Value(m), last.Value(m)
		if cur == prev {
			continue
		}
		diff := cur - prev
		if diff < 0 {
			diff = -diff
		}
		events = append(events, entity.Event{
			Type:      entity.EventTypeFor(m, cur > prev),
			Diff:      diff,
			Timestamp: newSnap.Timestamp,
			Value:     cur,
		})
	}
	return len(events) > 0, events
}
