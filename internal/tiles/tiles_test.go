package tiles

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomnav/server/internal/grid"
)

func newTestMap(t *testing.T, rows ...string) *Map {
	t.Helper()
	snapshot, err := grid.ParseHeightmap(rows)
	require.NoError(t, err)
	return New(snapshot)
}

func TestGetStateReflectsSnapshot(t *testing.T) {
	m := newTestMap(t, "x0", "03")

	state, err := m.GetState(grid.Cell{X: 0, Y: 0})
	require.NoError(t, err)
	assert.False(t, state.Walkable)

	state, err = m.GetState(grid.Cell{X: 1, Y: 1})
	require.NoError(t, err)
	assert.True(t, state.Walkable)
	assert.Equal(t, int16(3), state.Height)
	assert.False(t, state.Solid)
	assert.False(t, state.Occupied())
}

func TestOccupancyRoundTripRestoresWalkability(t *testing.T) {
	m := newTestMap(t, "000")
	cell := grid.Cell{X: 1, Y: 0}

	before, err := m.CanWalkOn(cell)
	require.NoError(t, err)
	require.True(t, before)

	entity := uuid.New()
	require.NoError(t, m.SetOccupied(cell, entity))
	during, err := m.CanWalkOn(cell)
	require.NoError(t, err)
	assert.False(t, during)

	occupant, err := m.Occupant(cell)
	require.NoError(t, err)
	assert.Equal(t, entity, occupant)

	require.NoError(t, m.SetOccupied(cell, uuid.Nil))
	after, err := m.CanWalkOn(cell)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// clearing again is a no-op
	require.NoError(t, m.SetOccupied(cell, uuid.Nil))
}

func TestSolidObjectBlocksRegardlessOfOccupancy(t *testing.T) {
	m := newTestMap(t, "01")
	cell := grid.Cell{X: 1, Y: 0}

	require.NoError(t, m.PlaceObject(cell, Object{ID: "chair", Solid: true, Height: 2}))

	solid, err := m.ContainsSolidObject(cell)
	require.NoError(t, err)
	assert.True(t, solid)

	ok, err := m.CanWalkOn(cell)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, m.Passable(cell, PolicyIgnoreOccupants))

	claimed, err := m.Claim(cell, uuid.New())
	require.NoError(t, err)
	assert.False(t, claimed)

	state, err := m.GetState(cell)
	require.NoError(t, err)
	assert.Equal(t, int16(3), state.Height)
	assert.Equal(t, "chair", state.ObjectID)

	require.NoError(t, m.RemoveObject(cell))
	state, err = m.GetState(cell)
	require.NoError(t, err)
	assert.Equal(t, int16(1), state.Height)
	assert.False(t, state.Solid)
	assert.Empty(t, state.ObjectID)
}

func TestPassableHonoursPolicy(t *testing.T) {
	m := newTestMap(t, "00")
	cell := grid.Cell{X: 0, Y: 0}
	require.NoError(t, m.SetOccupied(cell, uuid.New()))

	assert.True(t, m.Passable(cell, PolicyIgnoreOccupants))
	assert.False(t, m.Passable(cell, PolicyAvoidOccupants))
	assert.False(t, m.Passable(grid.Cell{X: 5, Y: 5}, PolicyIgnoreOccupants))
}

func TestOutOfBoundsOperationsAreRejected(t *testing.T) {
	m := newTestMap(t, "00", "00")
	outside := []grid.Cell{{X: -1, Y: 0}, {X: 2, Y: 0}, {X: 0, Y: 2}, {X: 0, Y: -1}}
	for _, cell := range outside {
		_, err := m.GetState(cell)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		_, err = m.CanWalkOn(cell)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		_, err = m.ContainsSolidObject(cell)
		assert.ErrorIs(t, err, ErrOutOfBounds)
		assert.ErrorIs(t, m.SetOccupied(cell, uuid.New()), ErrOutOfBounds)
		_, err = m.Claim(cell, uuid.New())
		assert.ErrorIs(t, err, ErrOutOfBounds)
		assert.ErrorIs(t, m.PlaceObject(cell, Object{ID: "lamp"}), ErrOutOfBounds)
	}

	// neighbouring in-bounds cells must be untouched
	for _, state := range m.States() {
		assert.False(t, state.Occupied(), "cell %s", state.Cell)
		assert.Empty(t, state.ObjectID)
	}
}

func TestReleaseOnlyClearsOwnOccupancy(t *testing.T) {
	m := newTestMap(t, "0")
	cell := grid.Cell{}
	owner, other := uuid.New(), uuid.New()

	ok, err := m.Claim(cell, owner)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Release(cell, other))
	occupant, _ := m.Occupant(cell)
	assert.Equal(t, owner, occupant)

	require.NoError(t, m.Release(cell, owner))
	occupant, _ = m.Occupant(cell)
	assert.Equal(t, uuid.Nil, occupant)
}

func TestConcurrentClaimsLeaveSingleOccupant(t *testing.T) {
	m := newTestMap(t, "000")
	cell := grid.Cell{X: 1, Y: 0}

	for round := 0; round < 200; round++ {
		require.NoError(t, m.SetOccupied(cell, uuid.Nil))

		const contenders = 8
		ids := make([]uuid.UUID, contenders)
		for i := range ids {
			ids[i] = uuid.New()
		}

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})
		for _, id := range ids {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				<-start
				if ok, err := m.Claim(cell, id); err == nil && ok {
					wins.Add(1)
				}
			}(id)
		}
		close(start)
		wg.Wait()

		require.Equal(t, int32(1), wins.Load(), "round %d", round)
		occupant, err := m.Occupant(cell)
		require.NoError(t, err)
		assert.Contains(t, ids, occupant)
	}
}

func TestConcurrentSetOccupiedNeverCorrupts(t *testing.T) {
	m := newTestMap(t, "00")
	cell := grid.Cell{X: 0, Y: 0}
	a, b := uuid.New(), uuid.New()

	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		for _, id := range []uuid.UUID{a, b} {
			wg.Add(1)
			go func(id uuid.UUID) {
				defer wg.Done()
				_ = m.SetOccupied(cell, id)
			}(id)
		}
		wg.Wait()

		occupant, err := m.Occupant(cell)
		require.NoError(t, err)
		require.True(t, occupant == a || occupant == b, "round %d: unexpected occupant %s", round, occupant)
	}
}

func TestObserverReceivesChanges(t *testing.T) {
	snapshot := grid.NewOpen(2, 1)
	var mu sync.Mutex
	var changes []Change
	m := New(snapshot, WithObserver(func(c Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))

	id := uuid.New()
	cell := grid.Cell{X: 1, Y: 0}
	_, err := m.Claim(cell, id)
	require.NoError(t, err)
	require.NoError(t, m.Release(cell, id))
	require.NoError(t, m.SetOccupied(cell, uuid.Nil))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, ChangeClaimed, changes[0].Kind)
	assert.Equal(t, id, changes[0].Occupant)
	assert.Equal(t, ChangeReleased, changes[1].Kind)
	assert.Equal(t, id, changes[1].Previous)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("avoid")
	require.NoError(t, err)
	assert.Equal(t, PolicyAvoidOccupants, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyIgnoreOccupants, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
