package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no matching event exists in the store.
var ErrNotFound = errors.New("not found")

// Action is the kind of WiFi operation an event records
type Action string

const (
	ActionConfigure  Action = "configure"
	ActionDisconnect Action = "disconnect"
	ActionAddKey     Action = "add-key"
)

// Status is the outcome of a recorded operation
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Event is one finished WiFi operation against a robot.
// Credentials are never recorded.
type Event struct {
	ID      uint64    `json:"id"`
	Robot   string    `json:"robot"`
	SSID    string    `json:"ssid,omitempty"`
	Action  Action    `json:"action"`
	Status  Status    `json:"status"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Recorder receives operation outcomes
type Recorder interface {
	Record(ev Event) error
}

// Store defines the persistence interface for the operation journal.
type Store interface {
	Recorder

	// List returns events newest first. An empty robot matches every robot;
	// limit <= 0 returns all matches.
	List(robot string, limit int) ([]Event, error)

	// Last returns the newest event for robot, or ErrNotFound.
	Last(robot string) (*Event, error)

	// Close the store
	Close() error
}
