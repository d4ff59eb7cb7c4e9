package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/internal/telemetry"
	"roomnav/server/internal/tiles"
	"roomnav/server/logging"
	"roomnav/server/logging/lifecycle"
	"roomnav/server/logging/navigation"
)

var (
	ErrUnknownEntity = errors.New("room: unknown entity")
	ErrRoomFull      = errors.New("room: no free tile to enter on")
	ErrNoSnapshot    = errors.New("room: missing grid snapshot")
)

// enterAttempts bounds how often Enter retries after losing a tile race.
const enterAttempts = 8

type Config struct {
	ID        string
	Name      string
	Door      grid.Cell
	Snapshot  *grid.Snapshot
	Objects   []PlacedObject
	Options   pathfinding.Options
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Observer  tiles.Observer
}

// PlacedObject is a static object together with the tile it rests on.
type PlacedObject struct {
	Cell   grid.Cell
	Object tiles.Object
}

// Room owns one grid snapshot, one occupancy map and the entities standing
// in it.
type Room struct {
	id        string
	name      string
	door      grid.Cell
	snapshot  *grid.Snapshot
	tiles     *tiles.Map
	engine    *pathfinding.Engine
	publisher logging.Publisher
	metrics   telemetry.Metrics
	tick      atomic.Uint64

	mu       sync.RWMutex
	entities map[uuid.UUID]*entityState
	retired  bool
}

func New(cfg Config) (*Room, error) {
	if cfg.Snapshot == nil {
		return nil, ErrNoSnapshot
	}
	if !cfg.Snapshot.InBounds(cfg.Door) {
		return nil, fmt.Errorf("room %q: door %s: %w", cfg.ID, cfg.Door, grid.ErrOutOfBounds)
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	r := &Room{
		id:        cfg.ID,
		name:      cfg.Name,
		door:      cfg.Door,
		snapshot:  cfg.Snapshot,
		engine:    pathfinding.New(cfg.Options),
		publisher: publisher,
		metrics:   metrics,
		entities:  make(map[uuid.UUID]*entityState),
	}
	r.tiles = tiles.New(cfg.Snapshot, tiles.WithObserver(tiles.FanOut(r.publishTileChange, cfg.Observer)))
	for _, placed := range cfg.Objects {
		if err := r.tiles.PlaceObject(placed.Cell, placed.Object); err != nil {
			return nil, fmt.Errorf("room %q: object %q: %w", cfg.ID, placed.Object.ID, err)
		}
	}
	return r, nil
}

func (r *Room) ID() string { return r.id }
func (r *Room) Name() string { return r.name }
func (r *Room) Door() grid.Cell { return r.door }
func (r *Room) Snapshot() *grid.Snapshot { return r.snapshot }
func (r *Room) Tiles() *tiles.Map { return r.tiles }
func (r *Room) Tick() uint64 { return r.tick.Load() }
func (r *Room) Engine() *pathfinding.Engine { return r.engine }
func (r *Room) Policy() tiles.Policy { return r.engine.Options().Policy }

func (r *Room) Population() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Enter registers a new entity and stands it on the door, or on the nearest
// free tile when the door is taken.
func (r *Room) Enter(name string) (Entity, error) {
	if r.Retired() {
		return Entity{}, fmt.Errorf("%w: %s", ErrUnknownRoom, r.id)
	}
	state := &entityState{id: uuid.New(), name: name}

	placed := false
	for attempt := 0; attempt < enterAttempts && !placed; attempt++ {
		cell, ok := pathfinding.NearestPassable(r.snapshot, r.tiles, tiles.PolicyAvoidOccupants, r.door)
		if !ok {
			return Entity{}, ErrRoomFull
		}
		claimed, err := r.tiles.Claim(cell, state.id)
		if err != nil {
			return Entity{}, err
		}
		if claimed {
			state.position = cell
			state.z, _ = r.tileHeight(cell)
			placed = true
		}
	}
	if !placed {
		return Entity{}, ErrRoomFull
	}

	r.mu.Lock()
	if r.retired {
		r.mu.Unlock()
		if err := r.tiles.Release(state.position, state.id); err != nil {
			return Entity{}, err
		}
		return Entity{}, fmt.Errorf("%w: %s", ErrUnknownRoom, r.id)
	}
	r.entities[state.id] = state
	population := len(r.entities)
	r.mu.Unlock()

	r.metrics.Store("room_population_"+r.id, uint64(population))
	lifecycle.EntityEntered(context.Background(), r.publisher, r.tick.Load(), r.id, entityRef(state.id), lifecycle.EntityEnteredPayload{
		Name:       name,
		X:          state.position.X,
		Y:          state.position.Y,
		AtDoor:     state.position == r.door,
		Population: population,
	})
	return state.snapshot(), nil
}

// Retired reports whether the room was replaced or removed by its manager.
func (r *Room) Retired() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retired
}

// retire stops the room from accepting entities. It fails with ErrRoomBusy
// while anyone is inside.
func (r *Room) retire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entities) > 0 {
		return fmt.Errorf("%w: %s", ErrRoomBusy, r.id)
	}
	r.retired = true
	return nil
}

func (r *Room) reopen() {
	r.mu.Lock()
	r.retired = false
	r.mu.Unlock()
}

// Leave unregisters the entity and frees its tile.
func (r *Room) Leave(id uuid.UUID) error {
	r.mu.Lock()
	state, ok := r.entities[id]
	if ok {
		delete(r.entities, id)
	}
	population := len(r.entities)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}

	state.mu.Lock()
	cell := state.position
	state.walk = walkState{}
	state.left = true
	state.mu.Unlock()

	r.metrics.Store("room_population_"+r.id, uint64(population))
	lifecycle.EntityLeft(context.Background(), r.publisher, r.tick.Load(), r.id, entityRef(id), lifecycle.EntityLeftPayload{
		X:          cell.X,
		Y:          cell.Y,
		Population: population,
	})
	return r.tiles.Release(cell, id)
}

// Resolve turns an occupant handle back into the entity it names.
func (r *Room) Resolve(id uuid.UUID) (Entity, bool) {
	state, ok := r.lookup(id)
	if !ok {
		return Entity{}, false
	}
	return state.snapshot(), true
}

// Entities lists every entity ordered by ID.
func (r *Room) Entities() []Entity {
	r.mu.RLock()
	states := make([]*entityState, 0, len(r.entities))
	for _, state := range r.entities {
		states = append(states, state)
	}
	r.mu.RUnlock()

	out := make([]Entity, 0, len(states))
	for _, state := range states {
		out = append(out, state.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// ComputePath runs a search without touching any entity's walk state.
func (r *Room) ComputePath(from, to grid.Cell) (pathfinding.Path, error) {
	return r.engine.ComputePath(r.snapshot, r.tiles, from, to)
}

func (r *Room) PlaceObject(cell grid.Cell, obj tiles.Object) error {
	return r.tiles.PlaceObject(cell, obj)
}

func (r *Room) RemoveObject(cell grid.Cell) error {
	return r.tiles.RemoveObject(cell)
}

func (r *Room) lookup(id uuid.UUID) (*entityState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state, ok := r.entities[id]
	return state, ok
}

func (r *Room) tileHeight(cell grid.Cell) (int16, error) {
	state, err := r.tiles.GetState(cell)
	if err != nil {
		return 0, err
	}
	return state.Height, nil
}

func (r *Room) publishTileChange(change tiles.Change) {
	actor := logging.EntityRef{ID: r.id, Kind: logging.EntityKindRoom}
	switch {
	case change.Occupant != uuid.Nil:
		actor = entityRef(change.Occupant)
	case change.Previous != uuid.Nil:
		actor = entityRef(change.Previous)
	case change.ObjectID != "":
		actor = logging.EntityRef{ID: change.ObjectID, Kind: logging.EntityKindObject}
	}
	navigation.TileChanged(context.Background(), r.publisher, r.id, actor, navigation.TileChangedPayload{
		Cell:     navCell(change.Cell),
		Kind:     string(change.Kind),
		ObjectID: change.ObjectID,
	})
}

func entityRef(id uuid.UUID) logging.EntityRef {
	return logging.EntityRef{ID: id.String(), Kind: logging.EntityKindEntity}
}

func navCell(c grid.Cell) navigation.Cell {
	return navigation.Cell{X: c.X, Y: c.Y}
}
