package notification

import (
	"encoding/json"
	"sync"
	"time"

	"logmene/internal/metrics"
	"logmene/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Hub keeps the live websocket connections of every user and fans
// notifications out to them. A connection whose buffer is full is dropped.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*subscriber]struct{}
}

type subscriber struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*subscriber]struct{})}
}

// Serve registers conn for userID and blocks until the connection closes.
func (h *Hub) Serve(conn *websocket.Conn, userID string) {
	sub := &subscriber{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(sub)
	defer h.unregister(sub)

	go sub.writePump()
	sub.readPump()
}

// Push sends v as JSON to every connection of userID and returns how many accepted it.
func (h *Hub) Push(userID string, v any) int {
	msg, err := json.Marshal(v)
	if err != nil {
		logger.Error("websocket payload marshal failed", "user_id", userID, "error", err)
		return 0
	}

	var delivered int
	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.conns[userID] {
		select {
		case sub.send <- msg:
			delivered++
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		logger.Warn("dropping slow websocket connection", "user_id", userID)
		h.unregister(sub)
	}
	return delivered
}

// Connections returns the number of open connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*subscriber
	for _, subs := range h.conns {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		h.unregister(sub)
	}
}

func (h *Hub) register(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.conns[sub.userID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.conns[sub.userID] = subs
	}
	subs[sub] = struct{}{}
	metrics.WebsocketConnected()
}

// unregister is idempotent; the send channel is closed exactly once.
func (h *Hub) unregister(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.conns[sub.userID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.conns, sub.userID)
	}
	close(sub.send)
	metrics.WebsocketDisconnected()
}

// readPump discards client messages and exists to process pongs and detect disconnects.
func (s *subscriber) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "user_id", s.userID, "error", err)
			}
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
