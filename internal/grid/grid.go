package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when a coordinate falls outside the snapshot.
	ErrOutOfBounds = errors.New("grid: coordinate out of bounds")
	// ErrMalformed is returned for heightmaps that cannot describe a room.
	ErrMalformed = errors.New("grid: malformed heightmap")
)

// Marker is the traversability value stored for a single cell.
type Marker uint8

const (
	// Blocked cells can never be entered.
	Blocked Marker = iota
	// Open cells are walkable floor.
	Open
)

// Cell is an integer grid coordinate. X is the column and Y the row.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the cell one step of o away from c.
func (c Cell) Add(o Offset) Cell {
	return Cell{X: c.X + o.X, Y: c.Y + o.Y}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Offset is a relative step between two neighbouring cells.
type Offset struct {
	X int
	Y int
}

// Diagonal reports whether the step moves on both axes.
func (o Offset) Diagonal() bool {
	return o.X != 0 && o.Y != 0
}

// Directions holds the 8-connected neighbourhood. The first four entries are
// orthogonal, the last four diagonal.
var Directions = [...]Offset{
	{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0},
	{X: -1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {X: 1, Y: -1},
}

// Snapshot is the traversability map of one room. It is never mutated after
// construction, so concurrent readers need no synchronisation.
type Snapshot struct {
	cols, rows int
	markers    []Marker
	heights    []int16
}

// New builds a snapshot from rows of markers indexed [row][column]. Every row
// must have the same length.
func New(markers [][]Marker) (*Snapshot, error) {
	if len(markers) == 0 || len(markers[0]) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrMalformed)
	}
	rows := len(markers)
	cols := len(markers[0])
	s := &Snapshot{
		cols:    cols,
		rows:    rows,
		markers: make([]Marker, cols*rows),
		heights: make([]int16, cols*rows),
	}
	for y, row := range markers {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformed, y, len(row), cols)
		}
		copy(s.markers[y*cols:], row)
	}
	return s, nil
}

// NewOpen returns a fully walkable snapshot of the given size.
func NewOpen(width, height int) *Snapshot {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	s := &Snapshot{
		cols:    width,
		rows:    height,
		markers: make([]Marker, width*height),
		heights: make([]int16, width*height),
	}
	for i := range s.markers {
		s.markers[i] = Open
	}
	return s
}

// Width is the number of columns.
func (s *Snapshot) Width() int {
	if s == nil {
		return 0
	}
	return s.cols
}

// Height is the number of rows.
func (s *Snapshot) Height() int {
	if s == nil {
		return 0
	}
	return s.rows
}

// InBounds reports whether c lies inside the snapshot.
func (s *Snapshot) InBounds(c Cell) bool {
	return s != nil && c.X >= 0 && c.Y >= 0 && c.X < s.cols && c.Y < s.rows
}

// Index maps an in-bounds cell onto the flat storage order (row major).
func (s *Snapshot) Index(c Cell) int {
	return c.Y*s.cols + c.X
}

// CellAt is the inverse of Index.
func (s *Snapshot) CellAt(index int) Cell {
	return Cell{X: index % s.cols, Y: index / s.cols}
}

// Walkable reports the marker of c. Out-of-bounds cells return ErrOutOfBounds.
func (s *Snapshot) Walkable(c Cell) (bool, error) {
	if !s.InBounds(c) {
		return false, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return s.markers[s.Index(c)] == Open, nil
}

// IsWalkable reports false for out-of-bounds cells instead of failing.
func (s *Snapshot) IsWalkable(c Cell) bool {
	ok, err := s.Walkable(c)
	return err == nil && ok
}

// HeightAt returns the floor height of c.
func (s *Snapshot) HeightAt(c Cell) (int16, error) {
	if !s.InBounds(c) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfBounds, c)
	}
	return s.heights[s.Index(c)], nil
}

// Rows renders the snapshot back into heightmap rows.
func (s *Snapshot) Rows() []string {
	if s == nil {
		return nil
	}
	out := make([]string, s.rows)
	buf := make([]byte, s.cols)
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.cols; x++ {
			idx := y*s.cols + x
			if s.markers[idx] != Open {
				buf[x] = 'x'
				continue
			}
			buf[x] = heightRune(s.heights[idx])
		}
		out[y] = string(buf)
	}
	return out
}
