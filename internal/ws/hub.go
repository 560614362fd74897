package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spark-service/internal/models"
	"spark-service/internal/observability"
)

// client wraps one websocket connection. Fan-out goroutines and the
// gateway's ack path both write to the socket, so every write goes
// through the client's own mutex.
type client struct {
	conn    *websocket.Conn
	info    ConnInfo
	writeMu sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(payload)
}

// Hub maintains the active realtime rooms: one room per connected
// user, one per joined conversation. Membership lives only as long as
// the connection does; nothing is rebuilt for a client except by the
// client re-joining.
type Hub struct {
	userRooms         map[int]map[*client]bool
	conversationRooms map[int]map[*client]bool
	clients           map[*websocket.Conn]*client
	mu                sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		userRooms:         make(map[int]map[*client]bool),
		conversationRooms: make(map[int]map[*client]bool),
		clients:           make(map[*websocket.Conn]*client),
	}
}

// Register admits a verified connection and auto-joins its user room.
func (h *Hub) Register(conn *websocket.Conn, info ConnInfo) *client {
	cl := &client{conn: conn, info: info}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = cl
	if _, ok := h.userRooms[info.UserID]; !ok {
		h.userRooms[info.UserID] = make(map[*client]bool)
	}
	h.userRooms[info.UserID][cl] = true
	return cl
}

// Unregister drops a connection from every room it is in.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	delete(h.clients, conn)
	if room, ok := h.userRooms[cl.info.UserID]; ok {
		delete(room, cl)
		if len(room) == 0 {
			delete(h.userRooms, cl.info.UserID)
		}
	}
	for conversationID, room := range h.conversationRooms {
		delete(room, cl)
		if len(room) == 0 {
			delete(h.conversationRooms, conversationID)
		}
	}
}

// JoinConversation adds a connection to a conversation room. The
// gateway re-validates participancy before calling this on every join;
// the hub itself trusts nothing across reconnects.
func (h *Hub) JoinConversation(conversationID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	if _, ok := h.conversationRooms[conversationID]; !ok {
		h.conversationRooms[conversationID] = make(map[*client]bool)
	}
	h.conversationRooms[conversationID][cl] = true
}

// LeaveConversation removes a connection from a conversation room.
func (h *Hub) LeaveConversation(conversationID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cl, ok := h.clients[conn]
	if !ok {
		return
	}
	if room, ok := h.conversationRooms[conversationID]; ok {
		delete(room, cl)
		if len(room) == 0 {
			delete(h.conversationRooms, conversationID)
		}
	}
}

// EmitToUsers pushes an event to every connection in the given user
// rooms.
func (h *Hub) EmitToUsers(userIDs []int, event string, data any) {
	h.mu.RLock()
	targets := make([]*client, 0)
	for _, userID := range userIDs {
		for cl := range h.userRooms[userID] {
			targets = append(targets, cl)
		}
	}
	h.mu.RUnlock()

	h.emit(targets, event, data)
}

// EmitToConversation pushes an event to every connection in a
// conversation room.
func (h *Hub) EmitToConversation(conversationID int, event string, data any) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.conversationRooms[conversationID]))
	for cl := range h.conversationRooms[conversationID] {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	h.emit(targets, event, data)
}

func (h *Hub) emit(targets []*client, event string, data any) {
	payload, err := json.Marshal(models.RealtimeEnvelope{Event: event, Data: data})
	if err != nil {
		log.Printf("websocket marshal error: %v", err)
		return
	}
	for _, cl := range targets {
		if err := cl.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			cl.conn.Close()
			h.Unregister(cl.conn)
			h.publishWSError(cl.info, err)
		}
	}
}

func (h *Hub) publishWSError(info ConnInfo, err error) {
	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.realtime", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   wsEventPayload(info, "ws_error", time.Since(info.ConnectedAt), err.Error()),
	}, headers)
	observability.IncWSEvent("realtime", "ws_error")
}

func wsEventPayload(info ConnInfo, event string, duration time.Duration, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "realtime",
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration.Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"handle":    info.Handle,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
