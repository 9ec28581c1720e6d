package entity

// Stats is the read view served to dashboards: History in chronological order
// and Events newest first.
type Stats struct {
	History []Snapshot `json:"history"`
	Events  []Event    `json:"events"`
}
