// Package events defines event types and structures for flow instance
// lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/flowdesk/flowdesk/pkg/models"
)

type EventType string

// Kafka topic for instance lifecycle and node execution events.
const Topic = "flowdesk.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Instance lifecycle events.
	InstanceCreatedEvent EventType = "instance.created"
	InstanceStartedEvent EventType = "instance.started"
	InstancePausedEvent  EventType = "instance.paused"
	InstanceResumedEvent EventType = "instance.resumed"
	InstanceStoppedEvent EventType = "instance.stopped"
	InstanceUpdatedEvent EventType = "instance.updated"
	InstanceDeletedEvent EventType = "instance.deleted"

	// Node execution events.
	NodeExecutionFinishedEvent EventType = "node.execution.finished"
	NodeExecutionFailedEvent   EventType = "node.execution.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	InstanceID string         `json:"instance_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type InstanceCreated struct {
	BaseEvent

	ProjectID  string `json:"project_id"`
	TemplateID string `json:"template_id"`
	CreatedBy  string `json:"created_by"`
}

func (e InstanceCreated) GetType() EventType {
	return InstanceCreatedEvent
}

// InstanceTransitioned covers the start/pause/resume/stop/update lifecycle
// events; the concrete event type is carried in the BaseEvent.
type InstanceTransitioned struct {
	BaseEvent

	Status    models.InstanceStatus `json:"status"`
	UpdatedBy string                `json:"updated_by"`
}

func (e InstanceTransitioned) GetType() EventType {
	return e.Type
}

type InstanceDeleted struct {
	BaseEvent

	DeletedBy string `json:"deleted_by"`
	Forced    bool   `json:"forced"`
}

func (e InstanceDeleted) GetType() EventType {
	return InstanceDeletedEvent
}

type NodeExecutionFinished struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	NodeType   string         `json:"node_type"`
	OutputData map[string]any `json:"output_data,omitempty"`
	Duration   time.Duration  `json:"duration"`
}

func (e NodeExecutionFinished) GetType() EventType {
	return NodeExecutionFinishedEvent
}

type NodeExecutionFailed struct {
	BaseEvent

	NodeID     string        `json:"node_id"`
	NodeType   string        `json:"node_type"`
	Error      string        `json:"error"`
	Suggestion string        `json:"suggestion,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (e NodeExecutionFailed) GetType() EventType {
	return NodeExecutionFailedEvent
}

func NewBaseEvent(eventType EventType, instanceID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		InstanceID: instanceID,
		Metadata:   make(map[string]any),
	}
}
