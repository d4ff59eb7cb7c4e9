package tiles

import (
	"github.com/google/uuid"

	"roomnav/server/internal/grid"
)

type ChangeKind string

const (
	ChangeClaimed       ChangeKind = "claimed"
	ChangeReleased      ChangeKind = "released"
	ChangeObjectPlaced  ChangeKind = "object_placed"
	ChangeObjectRemoved ChangeKind = "object_removed"
)

// Change describes a single tile mutation.
type Change struct {
	Cell     grid.Cell  `json:"cell"`
	Kind     ChangeKind `json:"kind"`
	Occupant uuid.UUID  `json:"occupant"`
	Previous uuid.UUID  `json:"previous"`
	ObjectID string     `json:"objectId,omitempty"`
	Solid    bool       `json:"solid,omitempty"`
}

// Observer receives tile changes. It runs on the mutating goroutine after the
// tile lock has been released and must not block.
type Observer func(Change)

// FanOut combines observers; nil entries are skipped.
func FanOut(observers ...Observer) Observer {
	active := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			active = append(active, o)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(change Change) {
		for _, o := range active {
			o(change)
		}
	}
}
