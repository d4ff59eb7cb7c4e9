package room

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/logging/navigation"
)

// Entity is a copy of an entity's state at the moment it was read.
type Entity struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Position grid.Cell        `json:"position"`
	Z        int16            `json:"z"`
	Walking  bool             `json:"walking"`
	Target   grid.Cell        `json:"target"`
	Path     pathfinding.Path `json:"path,omitempty"`
}

type walkState struct {
	path   pathfinding.Path
	index  int
	target grid.Cell
}

func (w walkState) active() bool {
	return w.index > 0 && w.index < len(w.path)
}

type entityState struct {
	mu       sync.Mutex
	id       uuid.UUID
	name     string
	position grid.Cell
	z        int16
	walk     walkState
	left     bool
}

func (e *entityState) snapshot() Entity {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Entity{
		ID:       e.id,
		Name:     e.name,
		Position: e.position,
		Z:        e.z,
		Walking:  e.walk.active(),
	}
	if out.Walking {
		out.Target = e.walk.target
		out.Path = e.walk.path[e.walk.index:].Clone()
	}
	return out
}

type StepResult uint8

const (
	StepIdle StepResult = iota
	StepMoved
	StepArrived
	StepBlocked
)

func (s StepResult) String() string {
	switch s {
	case StepMoved:
		return "moved"
	case StepArrived:
		return "arrived"
	case StepBlocked:
		return "blocked"
	default:
		return "idle"
	}
}

// WalkTo plans a path from the entity's tile to target and makes it the
// entity's walk. An empty path leaves the entity idle and is not an error.
func (r *Room) WalkTo(ctx context.Context, id uuid.UUID, target grid.Cell) (pathfinding.Path, error) {
	state, ok := r.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	if state.left {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}

	from := state.position
	res, err := r.engine.Search(r.snapshot, r.tiles, from, target)
	if err != nil {
		return nil, err
	}

	tick := r.tick.Load()
	actor := entityRef(id)
	if len(res.Path) == 0 {
		state.walk = walkState{}
		r.metrics.Add("paths_not_found", 1)
		navigation.PathNotFound(ctx, r.publisher, tick, r.id, actor, navigation.PathNotFoundPayload{
			From:     navCell(from),
			To:       navCell(target),
			Expanded: res.Expanded,
		})
		return nil, nil
	}

	r.metrics.Add("paths_computed", 1)
	navigation.PathComputed(ctx, r.publisher, tick, r.id, actor, navigation.PathComputedPayload{
		From:           navCell(from),
		To:             navCell(target),
		Steps:          len(res.Path) - 1,
		Cost:           res.Path.Cost(),
		Expanded:       res.Expanded,
		DurationMillis: float64(res.Duration.Microseconds()) / 1000,
	})

	state.walk = walkState{path: res.Path, index: 1, target: target}
	return res.Path.Clone(), nil
}

// Stop abandons the entity's current walk.
func (r *Room) Stop(id uuid.UUID) error {
	state, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	state.mu.Lock()
	state.walk = walkState{}
	state.mu.Unlock()
	return nil
}

// Step moves the entity one tile along its walk. The next tile is claimed
// before the current one is released, so the entity never stands nowhere and
// two entities never share a tile. Losing the claim abandons the walk.
func (r *Room) Step(ctx context.Context, id uuid.UUID) (StepResult, error) {
	state, ok := r.lookup(id)
	if !ok {
		return StepIdle, fmt.Errorf("%w: %s", ErrUnknownEntity, id)
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	return r.stepLocked(ctx, state)
}

func (r *Room) stepLocked(ctx context.Context, state *entityState) (StepResult, error) {
	if state.left || !state.walk.active() {
		return StepIdle, nil
	}

	from := state.position
	next := state.walk.path[state.walk.index]
	claimed, err := r.tiles.Claim(next, state.id)
	if err != nil {
		state.walk = walkState{}
		return StepIdle, err
	}
	if !claimed {
		holder, _ := r.tiles.Occupant(next)
		payload := navigation.StepBlockedPayload{
			From:      navCell(from),
			To:        navCell(next),
			Remaining: len(state.walk.path) - state.walk.index,
		}
		if holder != uuid.Nil {
			payload.Holder = holder.String()
		}
		state.walk = walkState{}
		r.metrics.Add("steps_blocked", 1)
		navigation.StepBlocked(ctx, r.publisher, r.tick.Load(), r.id, entityRef(state.id), payload)
		return StepBlocked, nil
	}

	if from != next {
		if err := r.tiles.Release(from, state.id); err != nil {
			return StepIdle, err
		}
	}
	state.position = next
	state.z, _ = r.tileHeight(next)
	state.walk.index++
	r.metrics.Add("steps_taken", 1)

	if state.walk.index >= len(state.walk.path) {
		state.walk = walkState{}
		return StepArrived, nil
	}
	return StepMoved, nil
}

type AdvanceSummary struct {
	Moved   int
	Arrived int
	Blocked int
}

func (s *AdvanceSummary) add(result StepResult) {
	switch result {
	case StepMoved:
		s.Moved++
	case StepArrived:
		s.Arrived++
	case StepBlocked:
		s.Blocked++
	}
}

func (s *AdvanceSummary) merge(other AdvanceSummary) {
	s.Moved += other.Moved
	s.Arrived += other.Arrived
	s.Blocked += other.Blocked
}

// Advance bumps the room tick and steps every walking entity once.
func (r *Room) Advance(ctx context.Context) AdvanceSummary {
	r.tick.Add(1)

	r.mu.RLock()
	states := make([]*entityState, 0, len(r.entities))
	for _, state := range r.entities {
		states = append(states, state)
	}
	r.mu.RUnlock()

	var summary AdvanceSummary
	for _, state := range states {
		state.mu.Lock()
		result, err := r.stepLocked(ctx, state)
		state.mu.Unlock()
		if err != nil {
			continue
		}
		summary.add(result)
	}
	return summary
}
