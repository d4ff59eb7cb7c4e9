package navigation

import (
	"context"

	"roomnav/server/logging"
)

const (
	// EventPathComputed is emitted after a successful search, with its timing.
	EventPathComputed logging.EventType = "navigation.path_computed"
	// EventPathNotFound is emitted when the open collection ran dry.
	EventPathNotFound logging.EventType = "navigation.path_not_found"
	// EventStepBlocked is emitted when a mover loses the race for its next tile.
	EventStepBlocked logging.EventType = "navigation.step_blocked"
	// EventTileChanged mirrors a tile occupancy or object mutation.
	EventTileChanged logging.EventType = "navigation.tile_changed"
	// EventRoomLoaded is emitted when a room model is applied.
	EventRoomLoaded logging.EventType = "navigation.room_loaded"
)

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type PathComputedPayload struct {
	From           Cell    `json:"from"`
	To             Cell    `json:"to"`
	Steps          int     `json:"steps"`
	Cost           int     `json:"cost"`
	Expanded       int     `json:"expanded"`
	DurationMillis float64 `json:"durationMillis"`
}

func PathComputed(ctx context.Context, pub logging.Publisher, tick uint64, room string, actor logging.EntityRef, payload PathComputedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathComputed,
		Tick:     tick,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
	})
}

type PathNotFoundPayload struct {
	From     Cell `json:"from"`
	To       Cell `json:"to"`
	Expanded int  `json:"expanded"`
}

func PathNotFound(ctx context.Context, pub logging.Publisher, tick uint64, room string, actor logging.EntityRef, payload PathNotFoundPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathNotFound,
		Tick:     tick,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNavigation,
		Payload:  payload,
	})
}

type StepBlockedPayload struct {
	From      Cell   `json:"from"`
	To        Cell   `json:"to"`
	Remaining int    `json:"remaining"`
	Holder    string `json:"holder,omitempty"`
}

func StepBlocked(ctx context.Context, pub logging.Publisher, tick uint64, room string, actor logging.EntityRef, payload StepBlockedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStepBlocked,
		Tick:     tick,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNavigation,
		Payload:  payload,
	})
}

type TileChangedPayload struct {
	Cell     Cell   `json:"cell"`
	Kind     string `json:"kind"`
	ObjectID string `json:"objectId,omitempty"`
}

func TileChanged(ctx context.Context, pub logging.Publisher, room string, actor logging.EntityRef, payload TileChangedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTileChanged,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryOccupancy,
		Payload:  payload,
	})
}

type RoomLoadedPayload struct {
	Name     string `json:"name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Objects  int    `json:"objects"`
	Replaced bool   `json:"replaced"`
}

func RoomLoaded(ctx context.Context, pub logging.Publisher, room string, payload RoomLoadedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomLoaded,
		Room:     room,
		Actor:    logging.EntityRef{ID: room, Kind: logging.EntityKindRoom},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		Payload:  payload,
	})
}
