// Package render draws room tiles into a terminal screen.
package render

import (
	"github.com/gdamore/tcell/v2"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/tiles"
)

// Glyphs used for each tile layer, highest priority first.
const (
	GlyphOccupant = '@'
	GlyphObject   = 'O'
	GlyphPath     = '*'
	GlyphDoor     = 'D'
	GlyphBlocked  = '#'
	GlyphFloor    = '.'
	GlyphCursor   = '+'
)

var (
	styleFloor    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBlocked  = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	styleOccupant = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleObject   = tcell.StyleDefault.Foreground(tcell.ColorMaroon)
	stylePath     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleDoor     = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleCursor   = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleText     = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// Frame is everything one draw of a room needs.
type Frame struct {
	Width  int
	Height int
	Tiles  []tiles.State
	Door   grid.Cell
	Path   []grid.Cell
	Cursor *grid.Cell
}

// Room draws frame with its top-left tile at (originX, originY). Tiles are
// drawn one column each; cells falling outside the screen are skipped.
func Room(screen tcell.Screen, frame Frame, originX, originY int) {
	cols, rows := screen.Size()

	onPath := make(map[grid.Cell]struct{}, len(frame.Path))
	for _, cell := range frame.Path {
		onPath[cell] = struct{}{}
	}

	for _, state := range frame.Tiles {
		x := originX + state.Cell.X
		y := originY + state.Cell.Y
		if x < 0 || y < 0 || x >= cols || y >= rows {
			continue
		}
		glyph, style := tileGlyph(state, frame.Door)
		if _, ok := onPath[state.Cell]; ok && !state.Occupied() && !state.Solid {
			glyph, style = GlyphPath, stylePath
		}
		if frame.Cursor != nil && *frame.Cursor == state.Cell {
			glyph, style = GlyphCursor, styleCursor
		}
		screen.SetContent(x, y, glyph, nil, style)
	}
}

func tileGlyph(state tiles.State, door grid.Cell) (rune, tcell.Style) {
	switch {
	case state.Occupied():
		return GlyphOccupant, styleOccupant
	case state.ObjectID != "":
		return GlyphObject, styleObject
	case !state.Walkable:
		return GlyphBlocked, styleBlocked
	case state.Cell == door:
		return GlyphDoor, styleDoor
	case state.Height > 0:
		return heightGlyph(state.Height), styleFloor
	default:
		return GlyphFloor, styleFloor
	}
}

func heightGlyph(h int16) rune {
	switch {
	case h <= 0:
		return GlyphFloor
	case h < 10:
		return rune('0' + h)
	case h <= grid.MaxHeight:
		return rune('a' + h - 10)
	default:
		return '^'
	}
}

// Text writes s at (x, y), one column per rune, clipped to the screen.
func Text(screen tcell.Screen, x, y int, s string) {
	cols, rows := screen.Size()
	if y < 0 || y >= rows {
		return
	}
	for _, r := range s {
		if x >= cols {
			return
		}
		if x >= 0 {
			screen.SetContent(x, y, r, nil, styleText)
		}
		x++
	}
}
