package grid

import (
	"fmt"
	"strings"
)

// MaxHeight is the tallest tile a heightmap row can express ('z').
const MaxHeight = 35

// ParseHeightmap reads room heightmap rows. 'x' marks a blocked cell, '0'-'9'
// and 'a'-'z' mark walkable cells with heights 0-35. Carriage returns and
// surrounding whitespace are ignored so raw model strings can be passed in.
func ParseHeightmap(rows []string) (*Snapshot, error) {
	cleaned := make([]string, 0, len(rows))
	for _, row := range rows {
		row = strings.TrimSpace(strings.TrimRight(row, "\r"))
		if row == "" {
			continue
		}
		cleaned = append(cleaned, row)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformed)
	}

	cols := len(cleaned[0])
	s := &Snapshot{
		cols:    cols,
		rows:    len(cleaned),
		markers: make([]Marker, cols*len(cleaned)),
		heights: make([]int16, cols*len(cleaned)),
	}
	for y, row := range cleaned {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrMalformed, y, len(row), cols)
		}
		for x := 0; x < cols; x++ {
			idx := y*cols + x
			ch := row[x]
			switch {
			case ch == 'x' || ch == 'X':
				s.markers[idx] = Blocked
			case ch >= '0' && ch <= '9':
				s.markers[idx] = Open
				s.heights[idx] = int16(ch - '0')
			case ch >= 'a' && ch <= 'z':
				s.markers[idx] = Open
				s.heights[idx] = int16(ch-'a') + 10
			default:
				return nil, fmt.Errorf("%w: unexpected %q at (%d,%d)", ErrMalformed, ch, x, y)
			}
		}
	}
	return s, nil
}

// SplitHeightmap splits a single model string on CR or LF.
func SplitHeightmap(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
}

func heightRune(h int16) byte {
	switch {
	case h < 0:
		return '0'
	case h < 10:
		return byte('0' + h)
	case h <= MaxHeight:
		return byte('a' + h - 10)
	default:
		return 'z'
	}
}
