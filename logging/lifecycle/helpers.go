package lifecycle

import (
	"context"

	"roomnav/server/logging"
)

const (
	// EventEntityEntered is emitted when an entity is placed in a room.
	EventEntityEntered logging.EventType = "lifecycle.entity_entered"
	// EventEntityLeft is emitted when an entity leaves a room.
	EventEntityLeft logging.EventType = "lifecycle.entity_left"
)

// EntityEnteredPayload captures where the entity was placed.
type EntityEnteredPayload struct {
	Name       string `json:"name,omitempty"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	AtDoor     bool   `json:"atDoor"`
	Population int    `json:"population"`
}

// EntityLeftPayload captures the tile the entity gave up.
type EntityLeftPayload struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	Population int `json:"population"`
}

// EntityEntered publishes an entity entry event.
func EntityEntered(ctx context.Context, pub logging.Publisher, tick uint64, room string, actor logging.EntityRef, payload EntityEnteredPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEntityEntered,
		Tick:     tick,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}

// EntityLeft publishes an entity departure event.
func EntityLeft(ctx context.Context, pub logging.Publisher, tick uint64, room string, actor logging.EntityRef, payload EntityLeftPayload) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     EventEntityLeft,
		Tick:     tick,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	}
	pub.Publish(ctx, event)
}
