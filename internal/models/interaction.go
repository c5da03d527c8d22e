package models

import "time"

// Interaction is one user action on a rendered object (room model, panel, filter menu).
type Interaction struct {
	Object    string    `json:"object"`
	Type      string    `json:"type"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CountEntry pairs a key with how often it occurred.
type CountEntry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
