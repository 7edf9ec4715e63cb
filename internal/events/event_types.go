package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers: "<resource>.<action>".
type EventType string

// Resources emitting change events.
const (
	ResourceAccount = "account"
	ResourceChannel = "channel"
	ResourceFlow    = "flow"
	ResourceTeam    = "team"
)

// Actions applied to a resource.
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionBulkDeleted = "bulk_deleted"
)

const (
	EventAccountCreated     EventType = ResourceAccount + "." + ActionCreated
	EventAccountUpdated     EventType = ResourceAccount + "." + ActionUpdated
	EventAccountDeleted     EventType = ResourceAccount + "." + ActionDeleted
	EventAccountBulkDeleted EventType = ResourceAccount + "." + ActionBulkDeleted
	EventChannelCreated     EventType = ResourceChannel + "." + ActionCreated
	EventChannelUpdated     EventType = ResourceChannel + "." + ActionUpdated
	EventChannelDeleted     EventType = ResourceChannel + "." + ActionDeleted
	EventChannelBulkDeleted EventType = ResourceChannel + "." + ActionBulkDeleted
	EventFlowCreated        EventType = ResourceFlow + "." + ActionCreated
	EventFlowUpdated        EventType = ResourceFlow + "." + ActionUpdated
	EventFlowDeleted        EventType = ResourceFlow + "." + ActionDeleted
	EventFlowBulkDeleted    EventType = ResourceFlow + "." + ActionBulkDeleted
	EventTeamCreated        EventType = ResourceTeam + "." + ActionCreated
	EventTeamUpdated        EventType = ResourceTeam + "." + ActionUpdated
	EventTeamDeleted        EventType = ResourceTeam + "." + ActionDeleted
	EventTeamBulkDeleted    EventType = ResourceTeam + "." + ActionBulkDeleted
)

// AllEventTypes lists every type a service may publish.
func AllEventTypes() []EventType {
	return []EventType{
		EventAccountCreated, EventAccountUpdated, EventAccountDeleted, EventAccountBulkDeleted,
		EventChannelCreated, EventChannelUpdated, EventChannelDeleted, EventChannelBulkDeleted,
		EventFlowCreated, EventFlowUpdated, EventFlowDeleted, EventFlowBulkDeleted,
		EventTeamCreated, EventTeamUpdated, EventTeamDeleted, EventTeamBulkDeleted,
	}
}

// TypeOf builds the event type for a resource action.
func TypeOf(resource, action string) EventType {
	return EventType(resource + "." + action)
}

// Event represents a resource change emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	ResourceID string      `json:"resource_id,omitempty"`
	ActorID    string      `json:"actor_id,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, resourceID, actorID string, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		ResourceID: resourceID,
		ActorID:    actorID,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
}

// BulkDeletedPayload summarizes a bulk delete.
type BulkDeletedPayload struct {
	RequestedIDs []string `json:"requested_ids"`
	DeletedCount int64    `json:"deleted_count"`
	SkippedIDs   []string `json:"skipped_ids,omitempty"`
}
