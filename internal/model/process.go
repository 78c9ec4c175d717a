package model

import "time"

// ProcessRecord is the on-disk evidence of a running daemon.
// A zero StartedAt means the start time could not be read.
type ProcessRecord struct {
	PID       int
	StartedAt time.Time
}

// NotificationOutcome is the result of one channel's delivery attempt.
type NotificationOutcome struct {
	Channel string `json:"channel"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
