package race

import (
    "log"
    "sync"
    "time"
)

// Options configures a Registry. Broadcaster is required; the zero values
// of the intervals are replaced with defaults.
type Options struct {
    Broadcaster       Broadcaster
    Scores            ScoreRecorder
    Sanitize          func(string) string
    CountdownInterval time.Duration
    HeartbeatInterval time.Duration
}

const (
    defaultCountdownInterval = time.Second
    defaultHeartbeatInterval = 5 * time.Second
)

// Registry owns the process-wide room map and the connection-to-room
// association. Its lock covers membership changes (get-or-create, join,
// leave, remove) so that room creation and destruction stay atomic with
// the connection maps; ready, progress and timer work take only the room's
// own lock, so a busy room never stalls another.
type Registry struct {
    mu    sync.Mutex
    rooms map[string]*Room
    conns map[string]string // connID -> currentRoomID

    opts Options
}

func NewRegistry(opts Options) *Registry {
    if opts.CountdownInterval <= 0 {
        opts.CountdownInterval = defaultCountdownInterval
    }
    if opts.HeartbeatInterval <= 0 {
        opts.HeartbeatInterval = defaultHeartbeatInterval
    }
    if opts.Sanitize == nil {
        opts.Sanitize = func(s string) string { return s }
    }
    return &Registry{
        rooms: make(map[string]*Room),
        conns: make(map[string]string),
        opts:  opts,
    }
}

// Join puts a connection into a room, creating the room on first
// reference. A connection already in another room leaves it first, which
// may destroy that room; re-joining the current room just overwrites the
// player in place.
func (reg *Registry) Join(connID, name, roomID string) {
    if roomID == "" {
        return
    }

    reg.mu.Lock()
    defer reg.mu.Unlock()

    if current, ok := reg.conns[connID]; !ok || current != roomID {
        reg.leaveLocked(connID)
    }

    room, exists := reg.rooms[roomID]
    if !exists {
        room = newRoom(roomID, reg.opts)
        reg.rooms[roomID] = room
        go room.heartbeatLoop(reg.opts.HeartbeatInterval)
        log.Printf("room %s created", roomID)
    }
    reg.conns[connID] = roomID
    room.addPlayer(connID, name)
}

// Leave removes a connection from its current room, destroying the room
// if it becomes empty. Unknown connections are a no-op.
func (reg *Registry) Leave(connID string) {
    reg.mu.Lock()
    defer reg.mu.Unlock()
    reg.leaveLocked(connID)
}

func (reg *Registry) leaveLocked(connID string) {
    roomID, exists := reg.conns[connID]
    if !exists {
        return
    }
    delete(reg.conns, connID)

    room := reg.rooms[roomID]
    if room == nil {
        return
    }
    if room.removePlayer(connID) {
        room.close()
        delete(reg.rooms, roomID)
        log.Printf("room %s destroyed", roomID)
    }
}

// RemoveIfEmpty removes a room iff it has no players. Safe to call
// redundantly and for unknown ids.
func (reg *Registry) RemoveIfEmpty(roomID string) {
    reg.mu.Lock()
    defer reg.mu.Unlock()

    room, exists := reg.rooms[roomID]
    if !exists || room.PlayerCount() > 0 {
        return
    }
    room.close()
    delete(reg.rooms, roomID)
}

// Ready marks the connection's player ready in its current room.
func (reg *Registry) Ready(connID string) {
    if room := reg.roomFor(connID); room != nil {
        room.ready(connID)
    }
}

// SubmitText sanitizes text and installs it in the connection's room,
// starting a new race generation.
func (reg *Registry) SubmitText(connID, text string) {
    room := reg.roomFor(connID)
    if room == nil {
        return
    }
    text = reg.opts.Sanitize(text)
    if text == "" {
        log.Printf("conn %s: submitted text empty after sanitizing, ignored", connID)
        return
    }
    room.submitText(text)
}

// Progress applies a progress report to the connection's player.
func (reg *Registry) Progress(connID string, percent int, wpm float64) {
    if room := reg.roomFor(connID); room != nil {
        room.progress(connID, percent, wpm)
    }
}

// GetRoom returns the room with the given id, or nil.
func (reg *Registry) GetRoom(roomID string) *Room {
    reg.mu.Lock()
    defer reg.mu.Unlock()
    return reg.rooms[roomID]
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
    reg.mu.Lock()
    defer reg.mu.Unlock()
    return len(reg.rooms)
}

// Stop closes every room. Used on server shutdown and in tests.
func (reg *Registry) Stop() {
    reg.mu.Lock()
    defer reg.mu.Unlock()
    for id, room := range reg.rooms {
        room.close()
        delete(reg.rooms, id)
    }
    reg.conns = make(map[string]string)
}

func (reg *Registry) roomFor(connID string) *Room {
    reg.mu.Lock()
    defer reg.mu.Unlock()
    roomID, exists := reg.conns[connID]
    if !exists {
        return nil
    }
    return reg.rooms[roomID]
}
