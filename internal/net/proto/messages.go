package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/tiles"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	typeRooms         = "rooms"
	typeTiles         = "tiles"
	typePath          = "path"
	typeTileChange    = "tileChange"
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
)

// Client message type identifiers.
const (
	TypeEnter = "enter"
	TypeWalk  = "walk"
	TypeStop  = "stop"
	TypeLeave = "leave"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeRooms         = typeRooms
	TypeTiles         = typeTiles
	TypePath          = typePath
	TypeTileChange    = typeTileChange
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// Reject reasons reported back to stream clients.
const (
	RejectInvalidCommand = "invalid_command"
	RejectNotEntered     = "not_entered"
	RejectAlreadyEntered = "already_entered"
	RejectRoomFull       = "room_full"
	RejectOutOfBounds    = "out_of_bounds"
	RejectNoPath         = "no_path"
	RejectRoomClosed     = "room_closed"
)

var ErrMalformedCell = errors.New("proto: malformed cell")

// ClientMessage is the envelope every stream client message arrives in.
type ClientMessage struct {
	Ver  int    `json:"ver,omitempty"`
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	X    *int   `json:"x,omitempty"`
	Y    *int   `json:"y,omitempty"`
	Seq  uint64 `json:"seq,omitempty"`
}

// Target returns the walk target carried by the message.
func (m ClientMessage) Target() (grid.Cell, bool) {
	if m.X == nil || m.Y == nil {
		return grid.Cell{}, false
	}
	return grid.Cell{X: *m.X, Y: *m.Y}, true
}

type RoomSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Door       grid.Cell `json:"door"`
	Population int       `json:"population"`
	Tick       uint64    `json:"tick"`
	Policy     string    `json:"policy"`
}

type RoomsResponseV1 struct {
	Ver   int           `json:"ver"`
	Type  string        `json:"type"`
	Rooms []RoomSummary `json:"rooms"`
}

type TilesResponseV1 struct {
	Ver       int           `json:"ver"`
	Type      string        `json:"type"`
	Room      string        `json:"room"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Heightmap []string      `json:"heightmap"`
	Tiles     []tiles.State `json:"tiles"`
}

type PathResponseV1 struct {
	Ver   int         `json:"ver"`
	Type  string      `json:"type"`
	Room  string      `json:"room"`
	From  grid.Cell   `json:"from"`
	To    grid.Cell   `json:"to"`
	Found bool        `json:"found"`
	Cost  int         `json:"cost"`
	Path  []grid.Cell `json:"path"`
}

type TileChangeV1 struct {
	Ver        int          `json:"ver"`
	Type       string       `json:"type"`
	Room       string       `json:"room"`
	Change     tiles.Change `json:"change"`
	ServerTime int64        `json:"serverTime"`
}

type CommandAckV1 struct {
	Ver      int         `json:"ver"`
	Type     string      `json:"type"`
	Command  string      `json:"command"`
	Seq      uint64      `json:"seq,omitempty"`
	Entity   uuid.UUID   `json:"entity"`
	Position *grid.Cell  `json:"position,omitempty"`
	Path     []grid.Cell `json:"path,omitempty"`
}

type CommandRejectV1 struct {
	Ver     int    `json:"ver"`
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Seq     uint64 `json:"seq,omitempty"`
	Reason  string `json:"reason"`
}

// EncodeRooms renders the room listing.
func EncodeRooms(rooms []RoomSummary) ([]byte, error) {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return json.Marshal(RoomsResponseV1{Ver: Version, Type: typeRooms, Rooms: rooms})
}

func EncodeTiles(msg TilesResponseV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = typeTiles
	if msg.Tiles == nil {
		msg.Tiles = []tiles.State{}
	}
	return json.Marshal(msg)
}

// EncodePath renders a path response. An empty path still encodes as an
// array so clients never see null.
func EncodePath(msg PathResponseV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = typePath
	msg.Found = len(msg.Path) > 0
	if msg.Path == nil {
		msg.Path = []grid.Cell{}
	}
	return json.Marshal(msg)
}

func EncodeTileChange(room string, change tiles.Change, serverTime int64) ([]byte, error) {
	return json.Marshal(TileChangeV1{
		Ver:        Version,
		Type:       typeTileChange,
		Room:       room,
		Change:     change,
		ServerTime: serverTime,
	})
}

func EncodeCommandAck(msg CommandAckV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = typeCommandAck
	return json.Marshal(msg)
}

func EncodeCommandReject(msg CommandRejectV1) ([]byte, error) {
	msg.Ver = Version
	msg.Type = typeCommandReject
	return json.Marshal(msg)
}

// DecodeClientMessage parses a stream client message. Messages from a newer
// protocol revision are refused.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, err
	}
	if msg.Ver > Version {
		return ClientMessage{}, fmt.Errorf("proto: unsupported version %d", msg.Ver)
	}
	return msg, nil
}

// ParseCell reads a cell written as "x,y".
func ParseCell(raw string) (grid.Cell, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return grid.Cell{}, fmt.Errorf("%w: %q", ErrMalformedCell, raw)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return grid.Cell{}, fmt.Errorf("%w: %q", ErrMalformedCell, raw)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return grid.Cell{}, fmt.Errorf("%w: %q", ErrMalformedCell, raw)
	}
	return grid.Cell{X: x, Y: y}, nil
}
