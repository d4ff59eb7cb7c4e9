package pathfinding

import (
	"fmt"
	"time"

	"github.com/zyedidia/generic/mapset"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/tiles"
)

const (
	OrthogonalCost = 10
	DiagonalCost   = 14

	// DefaultCapacity covers the search breadth of a typical room.
	DefaultCapacity = 200
)

// Occupancy answers whether a cell may be expanded right now. *tiles.Map
// satisfies it.
type Occupancy interface {
	Passable(c grid.Cell, policy tiles.Policy) bool
}

type Options struct {
	Policy               tiles.Policy
	PreventCornerCutting bool
	Capacity             int
}

// Engine holds search options only; each call owns its own working state, so
// one Engine may serve concurrent callers.
type Engine struct {
	opts Options
}

func New(opts Options) *Engine {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options {
	return e.opts
}

type Result struct {
	Path     Path
	Expanded int
	Duration time.Duration
}

type node struct {
	cell   grid.Cell
	g      int
	h      int
	parent int
}

func (n *node) total() int {
	return n.g + n.h
}

const noParent = -1

// ComputePath returns the cells from start to end inclusive, or an empty path
// when end cannot be reached.
func (e *Engine) ComputePath(g *grid.Snapshot, occ Occupancy, start, end grid.Cell) (Path, error) {
	res, err := e.Search(g, occ, start, end)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// Search runs the best-first search and reports how much work it did.
func (e *Engine) Search(g *grid.Snapshot, occ Occupancy, start, end grid.Cell) (Result, error) {
	if !g.InBounds(start) {
		return Result{}, fmt.Errorf("pathfinding: start %s: %w", start, grid.ErrOutOfBounds)
	}
	if !g.InBounds(end) {
		return Result{}, fmt.Errorf("pathfinding: end %s: %w", end, grid.ErrOutOfBounds)
	}
	if start == end {
		return Result{Path: Path{start}}, nil
	}

	began := time.Now()
	s := search{
		engine: e,
		grid:   g,
		occ:    occ,
		end:    end,
		arena:  make([]node, 0, e.opts.Capacity),
		open:   make([]int, 0, e.opts.Capacity),
		inOpen: make(map[grid.Cell]int, e.opts.Capacity),
		closed: mapset.New[grid.Cell](),
	}
	goal := s.run(start)

	res := Result{Expanded: s.closed.Size(), Duration: time.Since(began)}
	if goal != noParent {
		res.Path = s.reconstruct(goal)
	}
	return res, nil
}

type search struct {
	engine *Engine
	grid   *grid.Snapshot
	occ    Occupancy
	end    grid.Cell

	arena  []node
	open   []int
	inOpen map[grid.Cell]int
	closed mapset.Set[grid.Cell]
}

func (s *search) run(start grid.Cell) int {
	s.push(node{cell: start, parent: noParent})

	for len(s.open) > 0 {
		pos := s.selectLowest()
		currentIdx := s.open[pos]
		current := s.arena[currentIdx]

		if current.cell == s.end {
			return currentIdx
		}

		s.open = append(s.open[:pos], s.open[pos+1:]...)
		delete(s.inOpen, current.cell)
		s.closed.Put(current.cell)

		for _, dir := range grid.Directions {
			next := current.cell.Add(dir)
			if !s.valid(next) || s.closed.Has(next) {
				continue
			}
			if dir.Diagonal() && s.engine.opts.PreventCornerCutting && !s.canCutCorner(current.cell, dir) {
				continue
			}

			cost := OrthogonalCost
			if dir.Diagonal() {
				cost = DiagonalCost
			}
			gCost := current.g + cost

			if existing, ok := s.inOpen[next]; ok {
				if gCost < s.arena[existing].g {
					s.arena[existing].g = gCost
					s.arena[existing].parent = currentIdx
				}
				continue
			}
			s.push(node{
				cell:   next,
				g:      gCost,
				h:      manhattan(next, s.end),
				parent: currentIdx,
			})
		}
	}
	return noParent
}

// selectLowest scans open in insertion order and keeps the last node whose
// total cost is less than or equal to the best seen so far.
func (s *search) selectLowest() int {
	best := 0
	bestCost := s.arena[s.open[0]].total()
	for i, idx := range s.open {
		if cost := s.arena[idx].total(); cost <= bestCost {
			best = i
			bestCost = cost
		}
	}
	return best
}

func (s *search) push(n node) {
	s.arena = append(s.arena, n)
	idx := len(s.arena) - 1
	s.open = append(s.open, idx)
	s.inOpen[n.cell] = idx
}

func (s *search) valid(c grid.Cell) bool {
	if !s.grid.IsWalkable(c) {
		return false
	}
	if s.occ == nil {
		return true
	}
	return s.occ.Passable(c, s.engine.opts.Policy)
}

func (s *search) canCutCorner(from grid.Cell, dir grid.Offset) bool {
	return s.valid(grid.Cell{X: from.X + dir.X, Y: from.Y}) && s.valid(grid.Cell{X: from.X, Y: from.Y + dir.Y})
}

func (s *search) reconstruct(goal int) Path {
	path := make(Path, 0)
	for idx := goal; idx != noParent; idx = s.arena[idx].parent {
		path = append(path, s.arena[idx].cell)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func manhattan(a, b grid.Cell) int {
	return OrthogonalCost * (abs(a.X-b.X) + abs(a.Y-b.Y))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
