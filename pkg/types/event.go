// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EventType classifies a progress event.
type EventType string

const (
	EventStatus     EventType = "status"
	EventDocuments  EventType = "documents"
	EventWebResults EventType = "webResults"
	EventAnswer     EventType = "answer"
	EventEvaluation EventType = "evaluation"
	EventDone       EventType = "done"
)

// Event is one entry in a run's progress stream. Events are emitted in
// stage-execution order.
type Event struct {
	Type    EventType `json:"type"`
	Stage   string    `json:"stage,omitempty"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}
