// Package events defines the notifications emitted by workflow edits, connection
// binding and action execution.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const Topic = "flowzen.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	WorkflowCreatedEvent     EventType = "workflow.created"
	WorkflowGraphSavedEvent  EventType = "workflow.graph_saved"
	WorkflowPublishedEvent   EventType = "workflow.published"
	WorkflowUnpublishedEvent EventType = "workflow.unpublished"

	ConnectionCreatedEvent EventType = "connection.created"

	ActionExecutedEvent EventType = "action.executed"
)

// AllEventTypes lists every event type the bus knows how to decode.
func AllEventTypes() []EventType {
	return []EventType{
		WorkflowCreatedEvent,
		WorkflowGraphSavedEvent,
		WorkflowPublishedEvent,
		WorkflowUnpublishedEvent,
		ConnectionCreatedEvent,
		ActionExecutedEvent,
	}
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	WorkflowID string    `json:"workflow_id,omitempty"`
}

func NewBaseEvent(eventType EventType, userID, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		UserID:     userID,
		WorkflowID: workflowID,
	}
}

type WorkflowCreated struct {
	BaseEvent

	Name string `json:"name"`
}

func (WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

// WorkflowGraphSaved is emitted after nodes and edges were replaced.
type WorkflowGraphSaved struct {
	BaseEvent

	NodeCount      int      `json:"node_count"`
	EdgeCount      int      `json:"edge_count"`
	ReachableTypes []string `json:"reachable_types"`
}

func (WorkflowGraphSaved) GetType() EventType {
	return WorkflowGraphSavedEvent
}

type WorkflowPublished struct {
	BaseEvent
}

func (WorkflowPublished) GetType() EventType {
	return WorkflowPublishedEvent
}

type WorkflowUnpublished struct {
	BaseEvent
}

func (WorkflowUnpublished) GetType() EventType {
	return WorkflowUnpublishedEvent
}

type ConnectionCreated struct {
	BaseEvent

	ConnectionID   string `json:"connection_id"`
	ConnectionType string `json:"connection_type"`
}

func (ConnectionCreated) GetType() EventType {
	return ConnectionCreatedEvent
}

// ActionExecuted carries the outcome of one dispatcher call. Failures are
// published too.
type ActionExecuted struct {
	BaseEvent

	NodeID   string        `json:"node_id"`
	NodeType string        `json:"node_type"`
	Success  bool          `json:"success"`
	Skipped  bool          `json:"skipped,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

func (ActionExecuted) GetType() EventType {
	return ActionExecutedEvent
}

// New returns an empty event value for eventType, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case WorkflowCreatedEvent:
		return &WorkflowCreated{}, true
	case WorkflowGraphSavedEvent:
		return &WorkflowGraphSaved{}, true
	case WorkflowPublishedEvent:
		return &WorkflowPublished{}, true
	case WorkflowUnpublishedEvent:
		return &WorkflowUnpublished{}, true
	case ConnectionCreatedEvent:
		return &ConnectionCreated{}, true
	case ActionExecutedEvent:
		return &ActionExecuted{}, true
	default:
		return nil, false
	}
}
