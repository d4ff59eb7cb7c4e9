package roommodel

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const lobbyYAML = `
id: lobby
name: Welcome Lobby
door: {x: 0, y: 1}
heightmap:
  - xxxx
  - "0000"
  - "0011"
objects:
  - id: sofa
    x: 2
    y: 2
    solid: true
    height: 1
`

func TestParseModel(t *testing.T) {
	model, err := Parse([]byte(lobbyYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.ID != "lobby" || model.Name != "Welcome Lobby" {
		t.Fatalf("unexpected identity %q/%q", model.ID, model.Name)
	}
	if model.Door != (Point{X: 0, Y: 1}) {
		t.Fatalf("unexpected door %+v", model.Door)
	}
	if len(model.Objects) != 1 || !model.Objects[0].Solid || model.Objects[0].Height != 1 {
		t.Fatalf("unexpected objects %+v", model.Objects)
	}
	snapshot, err := model.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapshot.Width() != 4 || snapshot.Height() != 3 {
		t.Fatalf("expected 4x3 snapshot, got %dx%d", snapshot.Width(), snapshot.Height())
	}
}

func TestValidateRejectsBadModels(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{name: "missing-id", doc: "heightmap: ['00']"},
		{name: "ragged", doc: "id: a\nheightmap: ['00', '0']"},
		{name: "door-outside", doc: "id: a\ndoor: {x: 5, y: 0}\nheightmap: ['00']"},
		{name: "object-outside", doc: "id: a\nheightmap: ['00']\nobjects: [{id: lamp, x: 0, y: 3}]"},
		{name: "object-without-id", doc: "id: a\nheightmap: ['00']\nobjects: [{x: 0, y: 0}]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadDirReadsModelFilesOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yaml"), lobbyYAML)
	writeFile(t, filepath.Join(dir, "a.yml"), "id: cellar\nheightmap: ['0x0']\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a model")

	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(models) != 2 || models[0].ID != "cellar" || models[1].ID != "lobby" {
		t.Fatalf("unexpected models %+v", models)
	}
}

func TestLoadDirRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), lobbyYAML)
	writeFile(t, filepath.Join(dir, "b.yaml"), lobbyYAML)

	if _, err := LoadDir(dir); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for duplicate ids, got %v", err)
	}
}

func TestSchemaDescribesModel(t *testing.T) {
	data, err := SchemaJSON()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("schema is not valid json: %v", err)
	}
	if decoded["title"] != "Room Model" {
		t.Fatalf("unexpected title %v", decoded["title"])
	}
	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected inline properties, got %T", decoded["properties"])
	}
	for _, key := range []string{"id", "door", "heightmap", "objects"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("expected property %q in schema", key)
		}
	}
}

func TestWatcherReportsModelWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	writeFile(t, filepath.Join(dir, "ignored.txt"), "x")
	path := filepath.Join(dir, "lobby.yaml")
	writeFile(t, path, lobbyYAML)

	select {
	case got := <-w.Events:
		if got != path {
			t.Fatalf("expected %s, got %s", path, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watcher event")
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestShippedRoomModelsLoad(t *testing.T) {
	models, err := LoadDir(filepath.Join("..", "..", "rooms"))
	if err != nil {
		t.Fatalf("shipped room models must load: %v", err)
	}
	if len(models) < 2 {
		t.Fatalf("expected at least two shipped rooms, got %d", len(models))
	}
	for _, model := range models {
		snapshot, err := model.Snapshot()
		if err != nil {
			t.Fatalf("room %q: %v", model.ID, err)
		}
		if !snapshot.IsWalkable(model.Door.Cell()) {
			t.Fatalf("room %q: door %s is not walkable", model.ID, model.Door.Cell())
		}
	}
}
