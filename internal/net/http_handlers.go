package net

import (
	"errors"
	nethttp "net/http"

	"roomnav/server/internal/grid"
	"roomnav/server/internal/net/proto"
	"roomnav/server/internal/net/ws"
	"roomnav/server/internal/observability"
	"roomnav/server/internal/room"
	"roomnav/server/internal/telemetry"
)

// Rooms is the room registry the HTTP surface reads from.
type Rooms interface {
	Room(id string) (*room.Room, bool)
	Rooms() []*room.Room
}

type HTTPHandlerConfig struct {
	Logger telemetry.Logger
	// Hub, when set, enables the /rooms/{id}/stream websocket endpoint.
	Hub           *ws.Hub
	Observability observability.Config
}

func NewHTTPHandler(rooms Rooms, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /rooms", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		loaded := rooms.Rooms()
		summaries := make([]proto.RoomSummary, 0, len(loaded))
		for _, current := range loaded {
			summaries = append(summaries, summarize(current))
		}
		data, err := proto.EncodeRooms(summaries)
		if err != nil {
			logger.Printf("failed to encode room list: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, data)
	})

	mux.HandleFunc("GET /rooms/{id}/tiles", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		current, ok := rooms.Room(r.PathValue("id"))
		if !ok {
			httpError(w, "unknown room", nethttp.StatusNotFound)
			return
		}
		snapshot := current.Snapshot()
		data, err := proto.EncodeTiles(proto.TilesResponseV1{
			Room:      current.ID(),
			Width:     snapshot.Width(),
			Height:    snapshot.Height(),
			Heightmap: snapshot.Rows(),
			Tiles:     current.Tiles().States(),
		})
		if err != nil {
			logger.Printf("failed to encode tiles for %s: %v", current.ID(), err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, data)
	})

	mux.HandleFunc("GET /rooms/{id}/path", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		current, ok := rooms.Room(r.PathValue("id"))
		if !ok {
			httpError(w, "unknown room", nethttp.StatusNotFound)
			return
		}
		query := r.URL.Query()
		from, err := proto.ParseCell(query.Get("from"))
		if err != nil {
			httpError(w, "invalid from", nethttp.StatusBadRequest)
			return
		}
		to, err := proto.ParseCell(query.Get("to"))
		if err != nil {
			httpError(w, "invalid to", nethttp.StatusBadRequest)
			return
		}

		path, err := current.ComputePath(from, to)
		if errors.Is(err, grid.ErrOutOfBounds) {
			httpError(w, "cell out of bounds", nethttp.StatusBadRequest)
			return
		}
		if err != nil {
			logger.Printf("path search in %s failed: %v", current.ID(), err)
			httpError(w, "search failed", nethttp.StatusInternalServerError)
			return
		}

		data, err := proto.EncodePath(proto.PathResponseV1{
			Room: current.ID(),
			From: from,
			To:   to,
			Cost: path.Cost(),
			Path: path,
		})
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		writeJSON(w, data)
	})

	if cfg.Hub != nil {
		stream := ws.NewHandler(cfg.Hub, rooms, ws.HandlerConfig{Logger: logger})
		mux.HandleFunc("GET /rooms/{id}/stream", stream.Handle)
	}

	observability.Register(mux, cfg.Observability)

	return mux
}

func summarize(current *room.Room) proto.RoomSummary {
	snapshot := current.Snapshot()
	return proto.RoomSummary{
		ID:         current.ID(),
		Name:       current.Name(),
		Width:      snapshot.Width(),
		Height:     snapshot.Height(),
		Door:       current.Door(),
		Population: current.Population(),
		Tick:       current.Tick(),
		Policy:     current.Policy().String(),
	}
}

func writeJSON(w nethttp.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
