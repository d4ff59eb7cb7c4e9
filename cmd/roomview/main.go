// Command roomview shows a room model in the terminal. Move the cursor with
// the arrow keys or hjkl, press enter to preview the path from the door,
// space to send a walker there, c to clear walkers and q to quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/internal/render"
	"roomnav/server/internal/room"
	"roomnav/server/internal/roommodel"
	"roomnav/server/internal/tiles"
)

type viewer struct {
	screen  tcell.Screen
	room    *room.Room
	cursor  grid.Cell
	preview pathfinding.Path
	status  string
}

func main() {
	modelPath := flag.String("model", "rooms/lobby.yaml", "room model file to show")
	policyFlag := flag.String("policy", "ignore", "occupancy policy: ignore or avoid")
	corners := flag.Bool("no-corner-cutting", false, "refuse diagonals that squeeze past blocked cells")
	tick := flag.Duration("tick", 250*time.Millisecond, "time between walker steps")
	flag.Parse()

	policy, err := tiles.ParsePolicy(*policyFlag)
	if err != nil {
		log.Fatalf("roomview: %v", err)
	}
	model, err := roommodel.Load(*modelPath)
	if err != nil {
		log.Fatalf("roomview: %v", err)
	}
	manager := room.NewManager(room.ManagerConfig{
		Options: pathfinding.Options{Policy: policy, PreventCornerCutting: *corners},
	})
	current, err := manager.Apply(context.Background(), model)
	if err != nil {
		log.Fatalf("roomview: %v", err)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("roomview: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("roomview: %v", err)
	}

	v := &viewer{screen: screen, room: current, cursor: current.Door()}
	v.run(*tick)
	screen.Fini()
}

func (v *viewer) run(tick time.Duration) {
	events := make(chan tcell.Event, 8)
	quit := make(chan struct{})
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()
	defer close(quit)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	ctx := context.Background()
	v.draw()
	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				v.screen.Sync()
			case *tcell.EventKey:
				if !v.handleKey(ctx, ev) {
					return
				}
			}
		case <-ticker.C:
			summary := v.room.Advance(ctx)
			if summary.Blocked > 0 {
				v.status = fmt.Sprintf("%d walker(s) blocked", summary.Blocked)
			}
		}
		v.draw()
	}
}

func (v *viewer) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		v.moveCursor(0, -1)
	case tcell.KeyDown:
		v.moveCursor(0, 1)
	case tcell.KeyLeft:
		v.moveCursor(-1, 0)
	case tcell.KeyRight:
		v.moveCursor(1, 0)
	case tcell.KeyEnter:
		v.previewPath()
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case 'k':
			v.moveCursor(0, -1)
		case 'j':
			v.moveCursor(0, 1)
		case 'h':
			v.moveCursor(-1, 0)
		case 'l':
			v.moveCursor(1, 0)
		case ' ':
			v.sendWalker(ctx)
		case 'c':
			v.clearWalkers()
		}
	}
	return true
}

func (v *viewer) moveCursor(dx, dy int) {
	next := v.cursor.Add(grid.Offset{X: dx, Y: dy})
	if v.room.Snapshot().InBounds(next) {
		v.cursor = next
	}
}

func (v *viewer) previewPath() {
	path, err := v.room.ComputePath(v.room.Door(), v.cursor)
	if err != nil {
		v.status = err.Error()
		return
	}
	v.preview = path
	if len(path) == 0 {
		v.status = fmt.Sprintf("no path from door to %s", v.cursor)
		return
	}
	v.status = fmt.Sprintf("%d steps, cost %d", len(path)-1, path.Cost())
}

func (v *viewer) sendWalker(ctx context.Context) {
	entity, err := v.room.Enter(fmt.Sprintf("walker-%d", v.room.Population()+1))
	if err != nil {
		v.status = err.Error()
		return
	}
	path, err := v.room.WalkTo(ctx, entity.ID, v.cursor)
	switch {
	case err != nil:
		v.status = err.Error()
	case len(path) == 0:
		v.status = fmt.Sprintf("walker at %s cannot reach %s", entity.Position, v.cursor)
	default:
		v.status = fmt.Sprintf("walker heading to %s", v.cursor)
	}
}

func (v *viewer) clearWalkers() {
	for _, entity := range v.room.Entities() {
		v.room.Leave(entity.ID)
	}
	v.status = "walkers cleared"
}

func (v *viewer) draw() {
	v.screen.Clear()
	snapshot := v.room.Snapshot()
	cursor := v.cursor

	var walking []grid.Cell
	for _, entity := range v.room.Entities() {
		walking = append(walking, entity.Path...)
	}
	path := append(append([]grid.Cell(nil), v.preview...), walking...)

	title := v.room.Name()
	if title == "" {
		title = v.room.ID()
	}
	render.Text(v.screen, 0, 0, fmt.Sprintf("%s  %dx%d  tick %d  walkers %d",
		title, snapshot.Width(), snapshot.Height(), v.room.Tick(), v.room.Population()))
	render.Room(v.screen, render.Frame{
		Width:  snapshot.Width(),
		Height: snapshot.Height(),
		Tiles:  v.room.Tiles().States(),
		Door:   v.room.Door(),
		Path:   path,
		Cursor: &cursor,
	}, 1, 2)
	render.Text(v.screen, 0, snapshot.Height()+3, fmt.Sprintf("cursor %s  %s", cursor, v.status))
	render.Text(v.screen, 0, snapshot.Height()+4, "arrows/hjkl move  enter preview  space walk  c clear  q quit")
	v.screen.Show()
}
