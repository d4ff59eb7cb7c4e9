package intake

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/net/proto"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/internal/room"
)

type fakeNavigator struct {
	enterErr error
	walkErr  error
	path     pathfinding.Path
	entered  []string
	left     []uuid.UUID
	stopped  []uuid.UUID
	walks    []grid.Cell
}

func (f *fakeNavigator) Enter(name string) (room.Entity, error) {
	if f.enterErr != nil {
		return room.Entity{}, f.enterErr
	}
	f.entered = append(f.entered, name)
	return room.Entity{ID: uuid.New(), Name: name, Position: grid.Cell{X: 1, Y: 2}}, nil
}

func (f *fakeNavigator) Leave(id uuid.UUID) error {
	f.left = append(f.left, id)
	return nil
}

func (f *fakeNavigator) WalkTo(_ context.Context, _ uuid.UUID, target grid.Cell) (pathfinding.Path, error) {
	f.walks = append(f.walks, target)
	return f.path, f.walkErr
}

func (f *fakeNavigator) Stop(id uuid.UUID) error {
	f.stopped = append(f.stopped, id)
	return nil
}

func intPtr(v int) *int { return &v }

func TestStageClientCommandEnterThenWalk(t *testing.T) {
	nav := &fakeNavigator{path: pathfinding.Path{{X: 1, Y: 2}, {X: 2, Y: 2}}}
	session := &Session{}
	ctx := context.Background()

	out := StageClientCommand(ctx, nav, session, proto.ClientMessage{Type: proto.TypeEnter, Name: "alice", Seq: 1})
	if out.Rejected() {
		t.Fatalf("expected enter to succeed, got %q", out.Reason)
	}
	if !session.Entered() {
		t.Fatalf("expected session to hold an entity")
	}
	if out.Ack.Position == nil || *out.Ack.Position != (grid.Cell{X: 1, Y: 2}) {
		t.Fatalf("unexpected ack position: %+v", out.Ack.Position)
	}
	if out.Ack.Seq != 1 {
		t.Fatalf("expected ack seq 1, got %d", out.Ack.Seq)
	}

	out = StageClientCommand(ctx, nav, session, proto.ClientMessage{Type: proto.TypeEnter, Name: "again"})
	if out.Reason != proto.RejectAlreadyEntered {
		t.Fatalf("expected already_entered, got %q", out.Reason)
	}

	out = StageClientCommand(ctx, nav, session, proto.ClientMessage{Type: proto.TypeWalk, X: intPtr(2), Y: intPtr(2)})
	if out.Rejected() {
		t.Fatalf("expected walk to succeed, got %q", out.Reason)
	}
	if len(out.Ack.Path) != 2 {
		t.Fatalf("expected path in ack, got %v", out.Ack.Path)
	}
	if len(nav.walks) != 1 || nav.walks[0] != (grid.Cell{X: 2, Y: 2}) {
		t.Fatalf("unexpected walks: %v", nav.walks)
	}
}

func TestStageClientCommandRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("walk before enter", func(t *testing.T) {
		out := StageClientCommand(ctx, &fakeNavigator{}, &Session{}, proto.ClientMessage{Type: proto.TypeWalk, X: intPtr(1), Y: intPtr(1)})
		if out.Reason != proto.RejectNotEntered {
			t.Fatalf("expected not_entered, got %q", out.Reason)
		}
	})

	t.Run("walk without target", func(t *testing.T) {
		session := &Session{Entity: uuid.New()}
		out := StageClientCommand(ctx, &fakeNavigator{}, session, proto.ClientMessage{Type: proto.TypeWalk, X: intPtr(1)})
		if out.Reason != proto.RejectInvalidCommand {
			t.Fatalf("expected invalid_command, got %q", out.Reason)
		}
	})

	t.Run("walk out of bounds", func(t *testing.T) {
		session := &Session{Entity: uuid.New()}
		nav := &fakeNavigator{walkErr: grid.ErrOutOfBounds}
		out := StageClientCommand(ctx, nav, session, proto.ClientMessage{Type: proto.TypeWalk, X: intPtr(50), Y: intPtr(1)})
		if out.Reason != proto.RejectOutOfBounds {
			t.Fatalf("expected out_of_bounds, got %q", out.Reason)
		}
	})

	t.Run("walk unreachable", func(t *testing.T) {
		session := &Session{Entity: uuid.New()}
		out := StageClientCommand(ctx, &fakeNavigator{}, session, proto.ClientMessage{Type: proto.TypeWalk, X: intPtr(1), Y: intPtr(1)})
		if out.Reason != proto.RejectNoPath {
			t.Fatalf("expected no_path, got %q", out.Reason)
		}
	})

	t.Run("room full", func(t *testing.T) {
		out := StageClientCommand(ctx, &fakeNavigator{enterErr: room.ErrRoomFull}, &Session{}, proto.ClientMessage{Type: proto.TypeEnter})
		if out.Reason != proto.RejectRoomFull {
			t.Fatalf("expected room_full, got %q", out.Reason)
		}
	})

	t.Run("room replaced", func(t *testing.T) {
		session := &Session{}
		out := StageClientCommand(ctx, &fakeNavigator{enterErr: fmt.Errorf("%w: lobby", room.ErrUnknownRoom)}, session, proto.ClientMessage{Type: proto.TypeEnter})
		if out.Reason != proto.RejectRoomClosed {
			t.Fatalf("expected room_closed, got %q", out.Reason)
		}
		if session.Entered() {
			t.Fatalf("expected session to stay outside")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		out := StageClientCommand(ctx, &fakeNavigator{}, &Session{}, proto.ClientMessage{Type: "dance"})
		if out.Reason != proto.RejectInvalidCommand {
			t.Fatalf("expected invalid_command, got %q", out.Reason)
		}
	})
}

func TestStageClientCommandLeaveClearsSession(t *testing.T) {
	id := uuid.New()
	nav := &fakeNavigator{}
	session := &Session{Entity: id}

	out := StageClientCommand(context.Background(), nav, session, proto.ClientMessage{Type: proto.TypeLeave})
	if out.Rejected() {
		t.Fatalf("expected leave to succeed, got %q", out.Reason)
	}
	if session.Entered() {
		t.Fatalf("expected session to be cleared")
	}
	if len(nav.left) != 1 || nav.left[0] != id {
		t.Fatalf("unexpected leaves: %v", nav.left)
	}
	if out.Ack.Entity != id {
		t.Fatalf("expected ack to name the departed entity")
	}
}
