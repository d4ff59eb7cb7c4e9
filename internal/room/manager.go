package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/internal/roommodel"
	"roomnav/server/internal/telemetry"
	"roomnav/server/internal/tiles"
	"roomnav/server/logging"
	"roomnav/server/logging/navigation"
)

var (
	ErrRoomBusy    = errors.New("room: room has entities")
	ErrUnknownRoom = errors.New("room: unknown room")
)

type ManagerConfig struct {
	Options   pathfinding.Options
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	// Observers, when set, supplies the tile observer for a room by ID.
	Observers func(roomID string) tiles.Observer
}

// Manager keeps the loaded rooms by ID.
type Manager struct {
	cfg   ManagerConfig
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}
	return &Manager{cfg: cfg, rooms: make(map[string]*Room)}
}

// Apply builds a room from model and installs it. A room that still has
// entities is never replaced; a replaced room is retired so stale handles
// cannot admit entities the tick loop would never reach.
func (m *Manager) Apply(ctx context.Context, model roommodel.Model) (*Room, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	snapshot, err := model.Snapshot()
	if err != nil {
		return nil, err
	}

	objects := make([]PlacedObject, 0, len(model.Objects))
	for _, obj := range model.Objects {
		objects = append(objects, PlacedObject{
			Cell:   grid.Cell{X: obj.X, Y: obj.Y},
			Object: tiles.Object{ID: obj.ID, Solid: obj.Solid, Height: obj.Height},
		})
	}

	var observer tiles.Observer
	if m.cfg.Observers != nil {
		observer = m.cfg.Observers(model.ID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, replaced := m.rooms[model.ID]
	if replaced {
		if err := existing.retire(); err != nil {
			return nil, err
		}
	}

	r, err := New(Config{
		ID:        model.ID,
		Name:      model.Name,
		Door:      model.Door.Cell(),
		Snapshot:  snapshot,
		Objects:   objects,
		Options:   m.cfg.Options,
		Publisher: m.cfg.Publisher,
		Metrics:   m.cfg.Metrics,
		Observer:  observer,
	})
	if err != nil {
		if replaced {
			existing.reopen()
		}
		return nil, err
	}
	m.rooms[model.ID] = r
	m.cfg.Metrics.Store("rooms_loaded", uint64(len(m.rooms)))

	navigation.RoomLoaded(ctx, m.cfg.Publisher, model.ID, navigation.RoomLoadedPayload{
		Name:     model.Name,
		Width:    snapshot.Width(),
		Height:   snapshot.Height(),
		Objects:  len(objects),
		Replaced: replaced,
	})
	return r, nil
}

func (m *Manager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Rooms lists the loaded rooms ordered by ID.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoom, id)
	}
	if err := r.retire(); err != nil {
		return err
	}
	delete(m.rooms, id)
	m.cfg.Metrics.Store("rooms_loaded", uint64(len(m.rooms)))
	return nil
}

// Advance steps every room once. Rooms are independent, so each one is
// advanced on its own goroutine.
func (m *Manager) Advance(ctx context.Context) AdvanceSummary {
	rooms := m.Rooms()
	results := make([]AdvanceSummary, len(rooms))
	var wg sync.WaitGroup
	for i, r := range rooms {
		wg.Add(1)
		go func(i int, r *Room) {
			defer wg.Done()
			results[i] = r.Advance(ctx)
		}(i, r)
	}
	wg.Wait()

	var total AdvanceSummary
	for _, res := range results {
		total.merge(res)
	}
	return total
}
