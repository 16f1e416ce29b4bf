package training

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventModelRefreshed     EventType = "model.refreshed"
	EventModelRefreshFailed EventType = "model.refresh_failed"
)

// Event is pushed to subscribers after every refresh attempt.
type Event struct {
	Type      EventType  `json:"type"`
	RunID     *uuid.UUID `json:"run_id,omitempty"`
	Users     int        `json:"users"`
	Error     string     `json:"error,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewRefreshedEvent(runID uuid.UUID, users int) Event {
	return Event{
		Type:      EventModelRefreshed,
		RunID:     &runID,
		Users:     users,
		Timestamp: time.Now().UTC(),
	}
}

func NewRefreshFailedEvent(err error) Event {
	e := Event{
		Type:      EventModelRefreshFailed,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
