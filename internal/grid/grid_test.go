package grid

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseHeightmapMarkersAndHeights(t *testing.T) {
	s, err := ParseHeightmap([]string{
		"xxx",
		"x0a\r",
		"x12",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Width() != 3 || s.Height() != 3 {
		t.Fatalf("expected 3x3 grid, got %dx%d", s.Width(), s.Height())
	}

	if ok, _ := s.Walkable(Cell{X: 0, Y: 1}); ok {
		t.Fatal("expected (0,1) to be blocked")
	}
	if ok, _ := s.Walkable(Cell{X: 1, Y: 1}); !ok {
		t.Fatal("expected (1,1) to be walkable")
	}
	if h, _ := s.HeightAt(Cell{X: 2, Y: 1}); h != 10 {
		t.Fatalf("expected 'a' to map to height 10, got %d", h)
	}
	if h, _ := s.HeightAt(Cell{X: 2, Y: 2}); h != 2 {
		t.Fatalf("expected height 2, got %d", h)
	}
}

func TestParseHeightmapRejectsRaggedRows(t *testing.T) {
	_, err := ParseHeightmap([]string{"000", "00"})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}

	if _, err := ParseHeightmap(nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for empty heightmap, got %v", err)
	}

	if _, err := ParseHeightmap([]string{"0?0"}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown marker, got %v", err)
	}
}

func TestOutOfBoundsLookupsAreRejected(t *testing.T) {
	s := NewOpen(2, 2)
	for _, c := range []Cell{{X: -1, Y: 0}, {X: 0, Y: -1}, {X: 2, Y: 0}, {X: 0, Y: 2}} {
		if _, err := s.Walkable(c); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for %s, got %v", c, err)
		}
		if _, err := s.HeightAt(c); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds height for %s, got %v", c, err)
		}
		if s.IsWalkable(c) {
			t.Fatalf("expected %s to report not walkable", c)
		}
	}
}

func TestRowsRoundTrip(t *testing.T) {
	rows := []string{"x0x", "1bz"}
	s, err := ParseHeightmap(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Rows(); !reflect.DeepEqual(got, rows) {
		t.Fatalf("expected %v, got %v", rows, got)
	}
}

func TestSplitHeightmap(t *testing.T) {
	got := SplitHeightmap("xx0\rx00\r\nx00\n")
	want := []string{"xx0", "x00", "x00"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNewRejectsRaggedMarkers(t *testing.T) {
	_, err := New([][]Marker{{Open, Open}, {Open}})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	s, err := New([][]Marker{{Open, Blocked}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsWalkable(Cell{X: 1, Y: 0}) {
		t.Fatal("expected blocked marker to be preserved")
	}
}

func TestDirectionsOrthogonalFirst(t *testing.T) {
	for i, d := range Directions {
		if (i < 4) == d.Diagonal() {
			t.Fatalf("direction %d (%+v) has unexpected diagonal flag", i, d)
		}
	}
}
