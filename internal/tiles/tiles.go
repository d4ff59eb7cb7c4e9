package tiles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roomnav/server/internal/grid"
)

// ErrOutOfBounds is returned for any operation on a cell outside the room.
var ErrOutOfBounds = errors.New("tiles: cell out of bounds")

// Policy decides whether entity occupancy blocks path expansion.
type Policy uint8

const (
	// PolicyIgnoreOccupants lets searches pass through occupied cells; movers
	// still re-validate each step before committing.
	PolicyIgnoreOccupants Policy = iota
	// PolicyAvoidOccupants treats occupied cells as blocked during a search.
	PolicyAvoidOccupants
)

func (p Policy) String() string {
	switch p {
	case PolicyAvoidOccupants:
		return "avoid"
	default:
		return "ignore"
	}
}

// ParsePolicy maps the textual config value onto a Policy.
func ParsePolicy(raw string) (Policy, error) {
	switch raw {
	case "", "ignore":
		return PolicyIgnoreOccupants, nil
	case "avoid":
		return PolicyAvoidOccupants, nil
	default:
		return PolicyIgnoreOccupants, fmt.Errorf("tiles: unknown occupancy policy %q", raw)
	}
}

// Object describes a static item resting on a tile.
type Object struct {
	ID     string
	Solid  bool
	Height int16
}

// State is a read-only copy of a tile.
type State struct {
	Cell     grid.Cell `json:"cell"`
	Walkable bool      `json:"walkable"`
	Height   int16     `json:"height"`
	Solid    bool      `json:"solid"`
	ObjectID string    `json:"objectId,omitempty"`
	Occupant uuid.UUID `json:"occupant"`
}

// Occupied reports whether an entity currently stands on the tile.
func (s State) Occupied() bool {
	return s.Occupant != uuid.Nil
}

type tileState struct {
	mu         sync.Mutex
	walkable   bool
	baseHeight int16
	height     int16
	solid      bool
	objectID   string
	occupant   uuid.UUID
}

// Map is the per-room occupancy table. Every tile carries its own lock; no
// operation ever holds more than one of them.
type Map struct {
	snapshot *grid.Snapshot
	tiles    []tileState
	observer Observer
}

// New allocates one tile per snapshot cell, seeded from the snapshot's
// markers and heights.
func New(snapshot *grid.Snapshot, opts ...Option) *Map {
	m := &Map{snapshot: snapshot}
	if snapshot != nil {
		m.tiles = make([]tileState, snapshot.Width()*snapshot.Height())
		for i := range m.tiles {
			cell := snapshot.CellAt(i)
			walkable, _ := snapshot.Walkable(cell)
			height, _ := snapshot.HeightAt(cell)
			m.tiles[i].walkable = walkable
			m.tiles[i].baseHeight = height
			m.tiles[i].height = height
		}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Option configures a Map at construction time.
type Option func(*Map)

// WithObserver registers a callback invoked after every tile mutation.
func WithObserver(observer Observer) Option {
	return func(m *Map) {
		m.observer = observer
	}
}

func (m *Map) Snapshot() *grid.Snapshot {
	return m.snapshot
}

func (m *Map) tile(c grid.Cell) (*tileState, error) {
	if m == nil || !m.snapshot.InBounds(c) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return &m.tiles[m.snapshot.Index(c)], nil
}

func (m *Map) GetState(c grid.Cell) (State, error) {
	t, err := m.tile(c)
	if err != nil {
		return State{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return State{
		Cell:     c,
		Walkable: t.walkable,
		Height:   t.height,
		Solid:    t.solid,
		ObjectID: t.objectID,
		Occupant: t.occupant,
	}, nil
}

// SetOccupied assigns id to the tile, or clears it when id is uuid.Nil.
// Clearing an empty tile is a no-op.
func (m *Map) SetOccupied(c grid.Cell, id uuid.UUID) error {
	t, err := m.tile(c)
	if err != nil {
		return err
	}
	t.mu.Lock()
	previous := t.occupant
	t.occupant = id
	t.mu.Unlock()

	if previous != id {
		m.notify(Change{Cell: c, Kind: occupancyKind(id), Occupant: id, Previous: previous})
	}
	return nil
}

// Claim takes the tile for id if it is walkable, free of solid objects and not
// held by another entity. The check and the write happen under the same lock,
// so of two concurrent claimers exactly one wins.
func (m *Map) Claim(c grid.Cell, id uuid.UUID) (bool, error) {
	t, err := m.tile(c)
	if err != nil {
		return false, err
	}
	if id == uuid.Nil {
		return false, fmt.Errorf("tiles: claim %s with nil occupant", c)
	}
	t.mu.Lock()
	if !t.walkable || t.solid || (t.occupant != uuid.Nil && t.occupant != id) {
		t.mu.Unlock()
		return false, nil
	}
	previous := t.occupant
	t.occupant = id
	t.mu.Unlock()

	if previous != id {
		m.notify(Change{Cell: c, Kind: ChangeClaimed, Occupant: id, Previous: previous})
	}
	return true, nil
}

// Release clears the tile only when id is the current occupant.
func (m *Map) Release(c grid.Cell, id uuid.UUID) error {
	t, err := m.tile(c)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if t.occupant != id || id == uuid.Nil {
		t.mu.Unlock()
		return nil
	}
	t.occupant = uuid.Nil
	t.mu.Unlock()

	m.notify(Change{Cell: c, Kind: ChangeReleased, Previous: id})
	return nil
}

func (m *Map) Occupant(c grid.Cell) (uuid.UUID, error) {
	t, err := m.tile(c)
	if err != nil {
		return uuid.Nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.occupant, nil
}

// CanWalkOn reports whether an entity may step onto the tile right now.
func (m *Map) CanWalkOn(c grid.Cell) (bool, error) {
	t, err := m.tile(c)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.walkable && !t.solid && t.occupant == uuid.Nil, nil
}

func (m *Map) ContainsSolidObject(c grid.Cell) (bool, error) {
	t, err := m.tile(c)
	if err != nil {
		return false, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.solid, nil
}

// Passable is the search-time validity check. Out-of-bounds cells are never
// passable.
func (m *Map) Passable(c grid.Cell, policy Policy) bool {
	t, err := m.tile(c)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.walkable || t.solid {
		return false
	}
	if policy == PolicyAvoidOccupants && t.occupant != uuid.Nil {
		return false
	}
	return true
}

// PlaceObject rests a static object on the tile. Heights stack on top of the
// floor height.
func (m *Map) PlaceObject(c grid.Cell, obj Object) error {
	t, err := m.tile(c)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.objectID = obj.ID
	t.solid = obj.Solid
	t.height = t.baseHeight + obj.Height
	t.mu.Unlock()

	m.notify(Change{Cell: c, Kind: ChangeObjectPlaced, ObjectID: obj.ID, Solid: obj.Solid})
	return nil
}

// RemoveObject clears the object and restores the floor height.
func (m *Map) RemoveObject(c grid.Cell) error {
	t, err := m.tile(c)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if t.objectID == "" && !t.solid {
		t.mu.Unlock()
		return nil
	}
	removed := t.objectID
	t.objectID = ""
	t.solid = false
	t.height = t.baseHeight
	t.mu.Unlock()

	m.notify(Change{Cell: c, Kind: ChangeObjectRemoved, ObjectID: removed})
	return nil
}

// States copies every tile, row major. Each tile is locked on its own so the
// result is not a consistent cut across the room.
func (m *Map) States() []State {
	if m == nil || m.snapshot == nil {
		return nil
	}
	out := make([]State, 0, len(m.tiles))
	for i := range m.tiles {
		state, err := m.GetState(m.snapshot.CellAt(i))
		if err != nil {
			continue
		}
		out = append(out, state)
	}
	return out
}

func (m *Map) notify(change Change) {
	if m.observer == nil {
		return
	}
	m.observer(change)
}

func occupancyKind(id uuid.UUID) ChangeKind {
	if id == uuid.Nil {
		return ChangeReleased
	}
	return ChangeClaimed
}
