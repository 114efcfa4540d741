package race

import (
    "log"
    "sync"
    "time"

    "github.com/typerush/typerush/typerush-backend/models"
)

// Status is the race lifecycle state of a room.
type Status string

const (
    StatusWaiting   Status = "waiting"   // roster open, no race locked in
    StatusCountdown Status = "countdown" // 3..0 in progress
    StatusRacing    Status = "racing"
    StatusFinished  Status = "finished"
)

const countdownFrom = 3

// Player is one connection's state inside a room. A player that joins
// after the countdown has started is a spectator: it receives every
// broadcast but does not gate the finish check.
type Player struct {
    ConnID     string
    Name       string
    Ready      bool
    Percent    int
    CurrentWpm float64
    BestWpm    float64
    Finished   bool
    Spectator  bool
    JoinedAt   time.Time
}

// Room owns all state for one race room. Every mutation, whether it comes
// from a client event, a countdown tick or a heartbeat, goes through r.mu,
// so a tick can never interleave with a client event on the same room.
type Room struct {
    ID string

    mu             sync.Mutex
    status         Status
    text           string
    players        map[string]*Player
    order          []string // connIDs in join order, for stable snapshots
    isSinglePlayer bool
    startTime      time.Time

    // generation increments whenever new text is submitted or the room is
    // closed. A countdown tick scheduled under an older generation is a no-op.
    generation int
    countdown  int
    timer      *time.Timer

    closed bool
    done   chan struct{} // closes the heartbeat loop

    broadcaster       Broadcaster
    scores            ScoreRecorder
    countdownInterval time.Duration
}

func newRoom(id string, opts Options) *Room {
    return &Room{
        ID:                id,
        status:            StatusWaiting,
        players:           make(map[string]*Player),
        done:              make(chan struct{}),
        broadcaster:       opts.Broadcaster,
        scores:            opts.Scores,
        countdownInterval: opts.CountdownInterval,
    }
}

// addPlayer adds (or overwrites) a player. It never changes the room
// status: a connection joining mid-countdown or mid-race becomes a
// spectator and simply receives the current state.
func (r *Room) addPlayer(connID, name string) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed {
        return
    }

    if _, exists := r.players[connID]; !exists {
        r.order = append(r.order, connID)
    }
    r.players[connID] = &Player{
        ConnID:    connID,
        Name:      name,
        Spectator: r.status != StatusWaiting,
        JoinedAt:  time.Now(),
    }

    if r.status == StatusWaiting {
        r.isSinglePlayer = len(r.players) == 1
    }

    r.broadcaster.Send(connID, models.WsMessage{Type: "roomJoined", Data: models.RoomJoined{
        RoomID:         r.ID,
        IsSinglePlayer: r.isSinglePlayer,
    }})
    if r.text != "" {
        r.broadcaster.Send(connID, models.WsMessage{Type: "race_text", Data: r.text})
    }
    r.broadcastStateLocked()
}

// removePlayer removes a player and reports whether the room is now empty.
// Removing an unknown player is a no-op.
func (r *Room) removePlayer(connID string) (empty bool) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed {
        return true
    }
    if _, exists := r.players[connID]; !exists {
        return len(r.players) == 0
    }

    delete(r.players, connID)
    for i, id := range r.order {
        if id == connID {
            r.order = append(r.order[:i], r.order[i+1:]...)
            break
        }
    }

    if len(r.players) == 0 {
        return true
    }

    switch r.status {
    case StatusWaiting:
        r.isSinglePlayer = len(r.players) == 1
        // The departed player may have been the only one not ready.
        if r.tryStartLocked() {
            return false
        }
    case StatusRacing:
        // The departed player may have been the last one still typing.
        if r.allParticipantsFinishedLocked() {
            r.finishLocked()
        }
    }

    r.broadcastStateLocked()
    return false
}

// submitText installs already-sanitized race text and starts a new race
// generation: status back to waiting, all player progress reset.
func (r *Room) submitText(text string) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed {
        return
    }

    r.generation++
    r.stopTimerLocked()

    r.text = text
    r.status = StatusWaiting
    r.startTime = time.Time{}
    for _, p := range r.players {
        p.Ready = false
        p.Percent = 0
        p.CurrentWpm = 0
        p.BestWpm = 0
        p.Finished = false
        p.Spectator = false
    }
    r.isSinglePlayer = len(r.players) == 1

    r.broadcaster.Broadcast(r.ID, models.WsMessage{Type: "race_text", Data: r.text})
    r.broadcastStateLocked()
}

// ready marks a player ready and starts the countdown once the gate is
// satisfied: immediately for a single-player room, otherwise when every
// currently-joined player is ready and there is more than one of them.
func (r *Room) ready(connID string) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed || r.status != StatusWaiting {
        return
    }
    p, exists := r.players[connID]
    if !exists {
        return
    }

    p.Ready = true

    if !r.tryStartLocked() {
        r.broadcastStateLocked()
    }
}

// tryStartLocked fires the countdown when the start condition holds:
// immediately for a single-player room once its player is ready, otherwise
// when every currently-joined player is ready and there is more than one
// of them. Evaluated on ready and again after a non-empty leave, since the
// departed player may have been the one holding the gate.
func (r *Room) tryStartLocked() bool {
    if r.status != StatusWaiting || len(r.players) == 0 || !r.allReadyLocked() {
        return false
    }
    if !r.isSinglePlayer && len(r.players) < 2 {
        return false
    }
    r.status = StatusCountdown
    r.countdown = countdownFrom
    log.Printf("room %s: countdown started with %d players", r.ID, len(r.players))
    r.tickLocked(r.generation)
    return true
}

// tickLocked broadcasts the current countdown value and either schedules
// the next tick or, at zero, starts the race. The generation guard makes a
// tick fired against a reset or closed room a no-op.
func (r *Room) tickLocked(gen int) {
    r.broadcaster.Broadcast(r.ID, models.WsMessage{Type: "countdown", Data: r.countdown})

    if r.countdown == 0 {
        r.timer = nil
        r.status = StatusRacing
        r.startTime = time.Now()
        // Re-send the text for anyone who connected between the gate
        // firing and the final tick.
        if r.text != "" {
            r.broadcaster.Broadcast(r.ID, models.WsMessage{Type: "race_text", Data: r.text})
        }
        r.broadcastStateLocked()
        return
    }

    r.countdown--
    r.broadcastStateLocked()
    r.timer = time.AfterFunc(r.countdownInterval, func() {
        r.mu.Lock()
        defer r.mu.Unlock()
        if r.closed || r.generation != gen || r.status != StatusCountdown {
            return
        }
        r.tickLocked(gen)
    })
}

// progress applies a progress report. Percent is monotonic per generation:
// a report lower than the stored value updates WPM only. Out-of-range
// percent is a protocol error and the whole report is dropped.
func (r *Room) progress(connID string, percent int, wpm float64) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed {
        return
    }
    p, exists := r.players[connID]
    if !exists {
        return
    }

    if percent < 0 || percent > 100 {
        log.Printf("room %s: dropping out-of-range percent %d from %s", r.ID, percent, connID)
        return
    }

    if percent > p.Percent {
        p.Percent = percent
    }
    if wpm < 0 {
        wpm = 0
    }
    p.CurrentWpm = wpm
    if wpm > p.BestWpm {
        p.BestWpm = wpm
    }
    if p.Percent >= 100 {
        p.Finished = true
    }

    if r.status == StatusRacing && r.allParticipantsFinishedLocked() {
        r.finishLocked()
    }

    r.broadcastStateLocked()
}

// close tears the room down: cancels any pending countdown tick and stops
// the heartbeat loop. Called by the registry when the room empties or the
// server shuts down.
func (r *Room) close() {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed {
        return
    }
    r.closed = true
    r.generation++
    r.stopTimerLocked()
    close(r.done)
}

func (r *Room) stopTimerLocked() {
    if r.timer != nil {
        r.timer.Stop()
        r.timer = nil
    }
}

func (r *Room) allReadyLocked() bool {
    for _, p := range r.players {
        if !p.Ready {
            return false
        }
    }
    return true
}

// allParticipantsFinishedLocked reports whether every non-spectator has
// finished. Spectators joined mid-race and must not hold the race open.
func (r *Room) allParticipantsFinishedLocked() bool {
    participants := 0
    for _, p := range r.players {
        if p.Spectator {
            continue
        }
        participants++
        if !p.Finished {
            return false
        }
    }
    return participants > 0
}

func (r *Room) finishLocked() {
    r.status = StatusFinished
    durationMs := time.Since(r.startTime).Milliseconds()

    results := make([]Result, 0, len(r.players))
    for _, id := range r.order {
        p := r.players[id]
        if p.Spectator {
            continue
        }
        results = append(results, Result{
            ConnID:     p.ConnID,
            Name:       p.Name,
            Percent:    p.Percent,
            Wpm:        p.CurrentWpm,
            BestWpm:    p.BestWpm,
            DurationMs: durationMs,
        })
    }

    log.Printf("room %s: race finished with %d players", r.ID, len(results))
    if r.scores != nil {
        r.scores.RecordFinish(r.ID, r.startTime, results)
    }
}

// heartbeatLoop re-broadcasts the room state at a fixed interval while the
// room exists, repairing any missed intermediate update.
func (r *Room) heartbeatLoop(interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    for {
        select {
        case <-ticker.C:
            r.mu.Lock()
            if !r.closed {
                r.broadcastStateLocked()
            }
            r.mu.Unlock()
        case <-r.done:
            return
        }
    }
}

func (r *Room) broadcastStateLocked() {
    r.broadcaster.Broadcast(r.ID, models.WsMessage{Type: "room_state", Data: models.RoomState{
        Status:      string(r.status),
        Text:        r.text,
        PlayerCount: len(r.players),
    }})

    roster := make([]models.RacerUpdate, 0, len(r.order))
    for _, id := range r.order {
        p := r.players[id]
        roster = append(roster, models.RacerUpdate{
            ID:      p.ConnID,
            Name:    p.Name,
            Percent: p.Percent,
            Wpm:     p.CurrentWpm,
        })
    }
    r.broadcaster.Broadcast(r.ID, models.WsMessage{Type: "race_update", Data: roster})
}

// Status returns the room's current lifecycle state.
func (r *Room) Status() Status {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.status
}

// PlayerCount returns the number of players currently in the room.
func (r *Room) PlayerCount() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.players)
}

// StartTime returns the time the race started, zero before that.
func (r *Room) StartTime() time.Time {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.startTime
}

// Snapshot returns a copy of one player's state, for tests and inspection.
func (r *Room) Snapshot(connID string) (Player, bool) {
    r.mu.Lock()
    defer r.mu.Unlock()
    p, exists := r.players[connID]
    if !exists {
        return Player{}, false
    }
    return *p, true
}
