package events

import "time"

// StoreCall is emitted after a key-value store operation.
type StoreCall struct {
	Store    string
	Op       string
	Keys     int
	Err      error
	Duration time.Duration
}
