package pathfinding

import (
	"github.com/zyedidia/generic/mapset"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/tiles"
)

// Path is an ordered list of cells from start to end.
type Path []grid.Cell

// Cost sums the fixed-point step costs along the path. Non-adjacent steps
// are not priced; use Contiguous to check them.
func (p Path) Cost() int {
	total := 0
	for i := 1; i < len(p); i++ {
		dx := p[i].X - p[i-1].X
		dy := p[i].Y - p[i-1].Y
		if dx != 0 && dy != 0 {
			total += DiagonalCost
		} else if dx != 0 || dy != 0 {
			total += OrthogonalCost
		}
	}
	return total
}

// Contiguous reports whether every consecutive pair is one neighbour step.
func (p Path) Contiguous() bool {
	for i := 1; i < len(p); i++ {
		dx := abs(p[i].X - p[i-1].X)
		dy := abs(p[i].Y - p[i-1].Y)
		if dx > 1 || dy > 1 || (dx == 0 && dy == 0) {
			return false
		}
	}
	return true
}

func (p Path) Last() (grid.Cell, bool) {
	if len(p) == 0 {
		return grid.Cell{}, false
	}
	return p[len(p)-1], true
}

func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// NearestPassable walks outward breadth first from c and returns the closest
// cell that is walkable and passable under policy.
func NearestPassable(g *grid.Snapshot, occ Occupancy, policy tiles.Policy, c grid.Cell) (grid.Cell, bool) {
	if !g.InBounds(c) {
		return grid.Cell{}, false
	}
	passable := func(cell grid.Cell) bool {
		if !g.IsWalkable(cell) {
			return false
		}
		return occ == nil || occ.Passable(cell, policy)
	}

	visited := mapset.New[grid.Cell]()
	visited.Put(c)
	queue := []grid.Cell{c}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if passable(current) {
			return current, true
		}
		for _, dir := range grid.Directions {
			next := current.Add(dir)
			if !g.InBounds(next) || visited.Has(next) {
				continue
			}
			visited.Put(next)
			queue = append(queue, next)
		}
	}
	return grid.Cell{}, false
}
