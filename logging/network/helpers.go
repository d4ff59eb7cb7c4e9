package network

import (
	"context"

	"roomnav/server/logging"
)

const (
	// EventStreamOpened is emitted when a websocket stream subscribes to a room.
	EventStreamOpened logging.EventType = "network.stream_opened"
	// EventStreamClosed is emitted when a stream ends for any reason.
	EventStreamClosed logging.EventType = "network.stream_closed"
	// EventSubscriberDropped is emitted when a subscriber falls too far behind.
	EventSubscriberDropped logging.EventType = "network.subscriber_dropped"
	// EventCommandRejected is emitted when a stream command is refused.
	EventCommandRejected logging.EventType = "network.command_rejected"
)

type StreamPayload struct {
	Remote      string `json:"remote,omitempty"`
	Subscribers int    `json:"subscribers"`
}

type CommandRejectedPayload struct {
	Command string `json:"command"`
	Seq     uint64 `json:"seq,omitempty"`
	Reason  string `json:"reason"`
}

func StreamOpened(ctx context.Context, pub logging.Publisher, room string, payload StreamPayload) {
	publish(ctx, pub, EventStreamOpened, logging.SeverityDebug, room, logging.EntityRef{}, payload)
}

func StreamClosed(ctx context.Context, pub logging.Publisher, room string, payload StreamPayload) {
	publish(ctx, pub, EventStreamClosed, logging.SeverityDebug, room, logging.EntityRef{}, payload)
}

// SubscriberDropped publishes a warning when a slow subscriber is cut off.
func SubscriberDropped(ctx context.Context, pub logging.Publisher, room string, payload StreamPayload) {
	publish(ctx, pub, EventSubscriberDropped, logging.SeverityWarn, room, logging.EntityRef{}, payload)
}

func CommandRejected(ctx context.Context, pub logging.Publisher, room string, actor logging.EntityRef, payload CommandRejectedPayload) {
	publish(ctx, pub, EventCommandRejected, logging.SeverityInfo, room, actor, payload)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, room string, actor logging.EntityRef, payload any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Room:     room,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
