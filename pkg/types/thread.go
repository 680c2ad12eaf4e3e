// Package types defines the shared data model for the Parley gateway.
package types

// Thread represents a persisted conversation that generated turns are
// appended to.
type Thread struct {
	ID      string     `json:"id"`
	OwnerID string     `json:"ownerID"`
	Title   string     `json:"title"`
	Time    ThreadTime `json:"time"`
}

// ThreadTime holds creation and last-activity timestamps in Unix milliseconds.
type ThreadTime struct {
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`
}
