package render

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/tiles"
)

func newScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	ss := tcell.NewSimulationScreen("UTF-8")
	if err := ss.Init(); err != nil {
		t.Fatalf("SimulationScreen.Init: %v", err)
	}
	ss.SetSize(w, h)
	t.Cleanup(ss.Fini)
	return ss
}

func glyphAt(screen tcell.Screen, x, y int) rune {
	r, _, _, _ := screen.GetContent(x, y)
	return r
}

func TestRoomDrawsEveryLayer(t *testing.T) {
	snapshot, err := grid.ParseHeightmap([]string{"0000", "0x03"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := tiles.New(snapshot)
	if err := m.PlaceObject(grid.Cell{X: 3, Y: 0}, tiles.Object{ID: "chair", Solid: true}); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := m.SetOccupied(grid.Cell{X: 2, Y: 1}, uuid.New()); err != nil {
		t.Fatalf("occupy: %v", err)
	}

	screen := newScreen(t, 20, 5)
	Room(screen, Frame{
		Width:  snapshot.Width(),
		Height: snapshot.Height(),
		Tiles:  m.States(),
		Door:   grid.Cell{X: 0, Y: 0},
		Path:   []grid.Cell{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 1}},
	}, 1, 1)

	cases := []struct {
		x, y int
		want rune
	}{
		{1, 1, GlyphPath},
		{2, 1, GlyphPath},
		{3, 1, GlyphFloor},
		{4, 1, GlyphObject},
		{1, 2, GlyphFloor},
		{2, 2, GlyphBlocked},
		{3, 2, GlyphOccupant},
		{4, 2, '3'},
	}
	for _, tc := range cases {
		if got := glyphAt(screen, tc.x, tc.y); got != tc.want {
			t.Fatalf("cell (%d,%d): expected %q, got %q", tc.x, tc.y, tc.want, got)
		}
	}
}

func TestRoomShowsDoorAndCursor(t *testing.T) {
	snapshot := grid.NewOpen(3, 1)
	m := tiles.New(snapshot)
	cursor := grid.Cell{X: 2, Y: 0}

	screen := newScreen(t, 10, 2)
	Room(screen, Frame{Width: 3, Height: 1, Tiles: m.States(), Door: grid.Cell{X: 1, Y: 0}, Cursor: &cursor}, 0, 0)

	if got := glyphAt(screen, 1, 0); got != GlyphDoor {
		t.Fatalf("expected door glyph, got %q", got)
	}
	if got := glyphAt(screen, 2, 0); got != GlyphCursor {
		t.Fatalf("expected cursor glyph, got %q", got)
	}
}

func TestRoomClipsToScreen(t *testing.T) {
	snapshot := grid.NewOpen(6, 6)
	m := tiles.New(snapshot)
	screen := newScreen(t, 3, 3)

	Room(screen, Frame{Width: 6, Height: 6, Tiles: m.States(), Door: grid.Cell{X: 5, Y: 5}}, 1, 1)

	if got := glyphAt(screen, 2, 2); got != GlyphFloor {
		t.Fatalf("expected floor inside clip, got %q", got)
	}
}

func TestTextClips(t *testing.T) {
	screen := newScreen(t, 4, 1)
	Text(screen, 1, 0, "hello")
	if got := glyphAt(screen, 1, 0); got != 'h' {
		t.Fatalf("expected h, got %q", got)
	}
	if got := glyphAt(screen, 3, 0); got != 'l' {
		t.Fatalf("expected l, got %q", got)
	}
}
