package events

import "time"

// Event types published by the editor. Subjects are "events.<TYPE>".
const (
	DocumentLoaded   = "DOCUMENT_LOADED"
	DocumentEdited   = "DOCUMENT_EDITED"
	ProposalReceived = "PROPOSAL_RECEIVED"
	ProposalApplied  = "PROPOSAL_APPLIED"
	ProposalRejected = "PROPOSAL_REJECTED"
	ProposalFailed   = "PROPOSAL_FAILED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "PROPOSAL_APPLIED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
