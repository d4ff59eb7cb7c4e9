package ws

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"

	"roomnav/server/internal/net/intake"
	"roomnav/server/internal/net/proto"
	"roomnav/server/internal/room"
	"roomnav/server/internal/telemetry"
	"roomnav/server/logging"
	"roomnav/server/logging/network"
)

// RoomLookup resolves the room a stream connects to.
type RoomLookup interface {
	Room(id string) (*room.Room, bool)
}

type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades /rooms/{id}/stream requests and runs one session per
// connection.
type Handler struct {
	hub      *Hub
	rooms    RoomLookup
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, rooms RoomLookup, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = hub.logger
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Handler{
		hub:      hub,
		rooms:    rooms,
		logger:   logger,
		upgrader: upgrader,
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	roomID := r.PathValue("id")
	current, ok := h.rooms.Room(roomID)
	if !ok {
		nethttp.Error(w, "unknown room", nethttp.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for room %s: %v", roomID, err)
		return
	}

	sub := newSubscriber(conn)
	subscribers := h.hub.subscribe(roomID, sub)
	initial, err := proto.EncodeTiles(proto.TilesResponseV1{
		Room:      current.ID(),
		Width:     current.Snapshot().Width(),
		Height:    current.Snapshot().Height(),
		Heightmap: current.Snapshot().Rows(),
		Tiles:     current.Tiles().States(),
	})
	if err != nil {
		h.logger.Printf("failed to marshal initial tiles for %s: %v", roomID, err)
		h.hub.unsubscribe(roomID, sub)
		sub.close()
		return
	}
	sub.enqueueFirst(initial)
	go sub.writeLoop()
	network.StreamOpened(r.Context(), h.hub.publisher, roomID, network.StreamPayload{
		Remote:      sub.remote,
		Subscribers: subscribers,
	})

	h.serve(r.Context(), roomID, sub)
}

// navigator resolves roomID on every command so a reloaded room is never
// driven through a stale handle.
func (h *Handler) navigator(roomID string) (intake.Navigator, bool) {
	current, ok := h.rooms.Room(roomID)
	if !ok {
		return nil, false
	}
	return current, true
}

func (h *Handler) serve(ctx context.Context, roomID string, sub *subscriber) {
	session := &intake.Session{}
	defer func() {
		remaining := h.hub.unsubscribe(roomID, sub)
		sub.close()
		network.StreamClosed(context.Background(), h.hub.publisher, roomID, network.StreamPayload{
			Remote:      sub.remote,
			Subscribers: remaining,
		})
		if !session.Entered() {
			return
		}
		if nav, ok := h.navigator(roomID); ok {
			if err := nav.Leave(session.Entity); err != nil {
				h.logger.Printf("failed to remove %s from %s: %v", session.Entity, roomID, err)
			}
		}
	}()

	send := h.replier(sub)
	conn := sub.conn
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := proto.DecodeClientMessage(payload)
		if err != nil {
			h.logger.Printf("discarding malformed message in %s: %v", roomID, err)
			if !send(proto.EncodeCommandReject(proto.CommandRejectV1{Reason: proto.RejectInvalidCommand})) {
				return
			}
			continue
		}

		nav, ok := h.navigator(roomID)
		if !ok {
			if !send(proto.EncodeCommandReject(proto.CommandRejectV1{Command: msg.Type, Seq: msg.Seq, Reason: proto.RejectRoomClosed})) {
				return
			}
			continue
		}
		outcome := intake.StageClientCommand(ctx, nav, session, msg)
		if outcome.Err != nil {
			h.logger.Printf("%s command in %s failed: %v", msg.Type, roomID, outcome.Err)
		}
		if outcome.Rejected() {
			network.CommandRejected(ctx, h.hub.publisher, roomID, actorRef(session), network.CommandRejectedPayload{
				Command: msg.Type,
				Seq:     msg.Seq,
				Reason:  outcome.Reason,
			})
			if !send(proto.EncodeCommandReject(proto.CommandRejectV1{
				Command: msg.Type,
				Seq:     msg.Seq,
				Reason:  outcome.Reason,
			})) {
				return
			}
			continue
		}
		if !send(proto.EncodeCommandAck(outcome.Ack)) {
			return
		}
	}
}

func actorRef(session *intake.Session) logging.EntityRef {
	if !session.Entered() {
		return logging.EntityRef{}
	}
	return logging.EntityRef{ID: session.Entity.String(), Kind: logging.EntityKindEntity}
}

// replier queues encoded responses on sub. It reports false once the
// subscriber can no longer take messages.
func (h *Handler) replier(sub *subscriber) func([]byte, error) bool {
	return func(data []byte, err error) bool {
		if err != nil {
			h.logger.Printf("failed to marshal response: %v", err)
			return true
		}
		return sub.enqueue(data)
	}
}
