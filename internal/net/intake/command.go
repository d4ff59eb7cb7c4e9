package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/net/proto"
	"roomnav/server/internal/pathfinding"
	"roomnav/server/internal/room"
)

// Navigator is the slice of a room a stream session drives.
type Navigator interface {
	Enter(name string) (room.Entity, error)
	Leave(id uuid.UUID) error
	WalkTo(ctx context.Context, id uuid.UUID, target grid.Cell) (pathfinding.Path, error)
	Stop(id uuid.UUID) error
}

// Session is the per-connection state a command operates on.
type Session struct {
	Entity uuid.UUID
}

func (s *Session) Entered() bool {
	return s.Entity != uuid.Nil
}

// Outcome is what the caller reports back to the client. Reason is set when
// the command was rejected.
type Outcome struct {
	Ack    proto.CommandAckV1
	Reason string
	Err    error
}

func (o Outcome) Rejected() bool {
	return o.Reason != ""
}

// StageClientCommand validates msg against the session and applies it to nav.
func StageClientCommand(ctx context.Context, nav Navigator, session *Session, msg proto.ClientMessage) Outcome {
	ack := proto.CommandAckV1{Command: msg.Type, Seq: msg.Seq, Entity: session.Entity}

	switch msg.Type {
	case proto.TypeEnter:
		if session.Entered() {
			return Outcome{Reason: proto.RejectAlreadyEntered}
		}
		entity, err := nav.Enter(msg.Name)
		if errors.Is(err, room.ErrRoomFull) {
			return Outcome{Reason: proto.RejectRoomFull}
		}
		if errors.Is(err, room.ErrUnknownRoom) {
			return Outcome{Reason: proto.RejectRoomClosed}
		}
		if err != nil {
			return Outcome{Reason: proto.RejectInvalidCommand, Err: err}
		}
		session.Entity = entity.ID
		ack.Entity = entity.ID
		position := entity.Position
		ack.Position = &position
		return Outcome{Ack: ack}

	case proto.TypeWalk:
		if !session.Entered() {
			return Outcome{Reason: proto.RejectNotEntered}
		}
		target, ok := msg.Target()
		if !ok {
			return Outcome{Reason: proto.RejectInvalidCommand}
		}
		path, err := nav.WalkTo(ctx, session.Entity, target)
		if errors.Is(err, grid.ErrOutOfBounds) {
			return Outcome{Reason: proto.RejectOutOfBounds}
		}
		if err != nil {
			return Outcome{Reason: proto.RejectInvalidCommand, Err: err}
		}
		if len(path) == 0 {
			return Outcome{Reason: proto.RejectNoPath}
		}
		ack.Path = path
		return Outcome{Ack: ack}

	case proto.TypeStop:
		if !session.Entered() {
			return Outcome{Reason: proto.RejectNotEntered}
		}
		if err := nav.Stop(session.Entity); err != nil {
			return Outcome{Reason: proto.RejectInvalidCommand, Err: err}
		}
		return Outcome{Ack: ack}

	case proto.TypeLeave:
		if !session.Entered() {
			return Outcome{Reason: proto.RejectNotEntered}
		}
		err := nav.Leave(session.Entity)
		session.Entity = uuid.Nil
		if err != nil && !errors.Is(err, room.ErrUnknownEntity) {
			return Outcome{Reason: proto.RejectInvalidCommand, Err: err}
		}
		return Outcome{Ack: ack}
	}

	return Outcome{Reason: proto.RejectInvalidCommand}
}
