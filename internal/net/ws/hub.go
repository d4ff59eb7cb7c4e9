package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"roomnav/server/internal/net/proto"
	"roomnav/server/internal/telemetry"
	"roomnav/server/internal/tiles"
	"roomnav/server/logging"
	"roomnav/server/logging/network"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

type HubConfig struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
}

// Hub fans tile changes out to the stream subscribers of each room.
type Hub struct {
	logger    telemetry.Logger
	metrics   telemetry.Metrics
	publisher logging.Publisher
	now       func() time.Time

	mu          sync.Mutex
	subscribers map[string]map[*subscriber]struct{}
}

func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		publisher:   cfg.Publisher,
		now:         time.Now,
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
	if h.logger == nil {
		h.logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if h.metrics == nil {
		h.metrics = telemetry.NopMetrics()
	}
	if h.publisher == nil {
		h.publisher = logging.NopPublisher()
	}
	return h
}

// Observer returns the tile observer for roomID. It never blocks: a
// subscriber whose queue is full is dropped.
func (h *Hub) Observer(roomID string) tiles.Observer {
	return func(change tiles.Change) {
		h.Broadcast(roomID, change)
	}
}

func (h *Hub) Broadcast(roomID string, change tiles.Change) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers[roomID]))
	for sub := range h.subscribers[roomID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	data, err := proto.EncodeTileChange(roomID, change, h.now().UnixMilli())
	if err != nil {
		h.logger.Printf("failed to marshal tile change for %s: %v", roomID, err)
		return
	}
	for _, sub := range subs {
		if !sub.enqueue(data) {
			remaining := h.unsubscribe(roomID, sub)
			if sub.closed() {
				continue
			}
			sub.close()
			h.metrics.Add("stream_subscribers_dropped", 1)
			network.SubscriberDropped(context.Background(), h.publisher, roomID, network.StreamPayload{
				Remote:      sub.remote,
				Subscribers: remaining,
			})
			continue
		}
		h.metrics.Add("stream_messages_sent", 1)
	}
}

// Subscribers reports how many connections are streaming roomID.
func (h *Hub) Subscribers(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[roomID])
}

func (h *Hub) subscribe(roomID string, sub *subscriber) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[roomID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subscribers[roomID] = set
	}
	set[sub] = struct{}{}
	return len(set)
}

// unsubscribe removes sub and reports how many subscribers remain.
func (h *Hub) unsubscribe(roomID string, sub *subscriber) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[roomID]
	if !ok {
		return 0
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, roomID)
	}
	return len(set)
}

// subscriber owns one websocket connection. Only writeLoop writes to conn.
type subscriber struct {
	conn    *websocket.Conn
	remote  string
	initial []byte
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (s *subscriber) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// enqueueFirst sets the message written ahead of anything queued. It must be
// called before writeLoop starts.
func (s *subscriber) enqueueFirst(data []byte) {
	s.initial = data
}

func (s *subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *subscriber) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	if s.initial != nil {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, s.initial); err != nil {
			s.close()
			return
		}
		s.initial = nil
	}
	for {
		select {
		case <-s.done:
			return
		case data := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.close()
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		}
	}
}
