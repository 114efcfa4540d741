package handlers

import (
    "encoding/json"
    "log"
    "sync"

    "github.com/gorilla/websocket"

    "github.com/typerush/typerush/typerush-backend/models"
)

// Connection represents a WebSocket connection and the identity it belongs
// to. Anonymous connections carry a generated guest name and an empty userID.
type Connection struct {
    ws       *websocket.Conn
    send     chan []byte
    id       string
    userID   string
    username string

    closeOnce sync.Once
}

// Hub maintains the set of active connections, indexed by connection id and
// by room, and fans broadcasts out to room members. It implements
// race.Broadcaster; both methods are non-blocking (slow consumers are
// dropped), which lets the room actor broadcast while holding its lock.
type Hub struct {
    mu          sync.Mutex
    connections map[string]*Connection            // connID -> connection
    rooms       map[string]map[string]*Connection // roomID -> connID -> connection
}

func NewHub() *Hub {
    return &Hub{
        connections: make(map[string]*Connection),
        rooms:       make(map[string]map[string]*Connection),
    }
}

func (h *Hub) register(c *Connection) {
    h.mu.Lock()
    h.connections[c.id] = c
    h.mu.Unlock()
}

func (h *Hub) unregister(c *Connection) {
    h.mu.Lock()
    delete(h.connections, c.id)
    h.removeFromRoomLocked(c.id)
    h.mu.Unlock()
    c.closeSend()
}

// moveToRoom records the connection's current room association. A
// connection belongs to at most one room, so any previous association is
// dropped first.
func (h *Hub) moveToRoom(connID, roomID string) {
    h.mu.Lock()
    defer h.mu.Unlock()

    c, ok := h.connections[connID]
    if !ok {
        return
    }
    h.removeFromRoomLocked(connID)

    members, ok := h.rooms[roomID]
    if !ok {
        members = make(map[string]*Connection)
        h.rooms[roomID] = members
    }
    members[connID] = c
}

func (h *Hub) removeFromRoomLocked(connID string) {
    for roomID, members := range h.rooms {
        if _, ok := members[connID]; ok {
            delete(members, connID)
            if len(members) == 0 {
                delete(h.rooms, roomID)
            }
            return
        }
    }
}

// Broadcast sends msg to every connection in the room.
func (h *Hub) Broadcast(roomID string, msg models.WsMessage) {
    payload, err := json.Marshal(msg)
    if err != nil {
        log.Printf("error marshalling %s broadcast: %v", msg.Type, err)
        return
    }

    h.mu.Lock()
    defer h.mu.Unlock()
    for _, c := range h.rooms[roomID] {
        c.trySend(payload)
    }
}

// Send sends msg to a single connection.
func (h *Hub) Send(connID string, msg models.WsMessage) {
    payload, err := json.Marshal(msg)
    if err != nil {
        log.Printf("error marshalling %s message: %v", msg.Type, err)
        return
    }

    h.mu.Lock()
    defer h.mu.Unlock()
    if c, ok := h.connections[connID]; ok {
        c.trySend(payload)
    }
}

// userFor returns the user account id attached to a connection, empty for
// guests and unknown connections.
func (h *Hub) userFor(connID string) string {
    h.mu.Lock()
    defer h.mu.Unlock()
    if c, ok := h.connections[connID]; ok {
        return c.userID
    }
    return ""
}

// trySend queues a payload without blocking. If the connection's buffer is
// full the payload is dropped; the next mutation or heartbeat re-broadcasts
// full state anyway.
func (c *Connection) trySend(payload []byte) {
    select {
    case c.send <- payload:
    default:
        log.Printf("connection %s send buffer full, dropping message", c.id)
    }
}

func (c *Connection) closeSend() {
    c.closeOnce.Do(func() { close(c.send) })
}
