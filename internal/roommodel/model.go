package roommodel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"roomnav/server/internal/grid"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("roommodel: invalid model")

// Point is a cell coordinate as written in a model document.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

func (p Point) Cell() grid.Cell {
	return grid.Cell{X: p.X, Y: p.Y}
}

// ObjectSpec is a static item placed when the room loads.
type ObjectSpec struct {
	ID     string `yaml:"id" json:"id" jsonschema:"required"`
	X      int    `yaml:"x" json:"x"`
	Y      int    `yaml:"y" json:"y"`
	Solid  bool   `yaml:"solid" json:"solid,omitempty"`
	Height int16  `yaml:"height" json:"height,omitempty"`
}

// Model is the designer-authored layout of one room.
type Model struct {
	ID        string       `yaml:"id" json:"id" jsonschema:"required,description=Unique room identifier"`
	Name      string       `yaml:"name" json:"name,omitempty"`
	Door      Point        `yaml:"door" json:"door"`
	Heightmap []string     `yaml:"heightmap" json:"heightmap" jsonschema:"required,minItems=1,description=Rows of x (blocked) or 0-9/a-z (walkable height)"`
	Objects   []ObjectSpec `yaml:"objects" json:"objects,omitempty"`
}

// Parse decodes and validates a YAML model document.
func Parse(data []byte) (Model, error) {
	var model Model
	if err := yaml.Unmarshal(data, &model); err != nil {
		return Model{}, fmt.Errorf("roommodel: decode: %w", err)
	}
	if err := model.Validate(); err != nil {
		return Model{}, err
	}
	return model, nil
}

func Load(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Model{}, fmt.Errorf("roommodel: load %s: %w", path, err)
	}
	model, err := Parse(data)
	if err != nil {
		return Model{}, fmt.Errorf("%s: %w", path, err)
	}
	return model, nil
}

// LoadDir reads every .yaml/.yml file in dir, sorted by file name. A single
// bad file fails the whole load.
func LoadDir(dir string) ([]Model, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("roommodel: read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsModelFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	models := make([]Model, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		model, err := Load(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[model.ID]; dup {
			return nil, fmt.Errorf("%w: room %q defined in both %s and %s", ErrInvalid, model.ID, prev, name)
		}
		seen[model.ID] = name
		models = append(models, model)
	}
	return models, nil
}

func IsModelFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Validate checks that the heightmap parses and that the door and every
// object sit inside it.
func (m Model) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	snapshot, err := m.Snapshot()
	if err != nil {
		return fmt.Errorf("%w: room %q: %v", ErrInvalid, m.ID, err)
	}
	if !snapshot.InBounds(m.Door.Cell()) {
		return fmt.Errorf("%w: room %q: door %s outside %dx%d heightmap", ErrInvalid, m.ID, m.Door.Cell(), snapshot.Width(), snapshot.Height())
	}
	for _, obj := range m.Objects {
		if obj.ID == "" {
			return fmt.Errorf("%w: room %q: object at (%d,%d) has no id", ErrInvalid, m.ID, obj.X, obj.Y)
		}
		if !snapshot.InBounds(grid.Cell{X: obj.X, Y: obj.Y}) {
			return fmt.Errorf("%w: room %q: object %q outside heightmap", ErrInvalid, m.ID, obj.ID)
		}
	}
	return nil
}

func (m Model) Snapshot() (*grid.Snapshot, error) {
	return grid.ParseHeightmap(m.Heightmap)
}
