package race

import (
    "time"

    "github.com/typerush/typerush/typerush-backend/models"
)

// Broadcaster delivers outbound events to connected clients. Both methods
// are called while the room lock is held, so implementations must not
// block (the hub buffers per-connection and drops on slow consumers).
type Broadcaster interface {
    // Broadcast sends msg to every connection currently in the room.
    Broadcast(roomID string, msg models.WsMessage)
    // Send sends msg to a single connection.
    Send(connID string, msg models.WsMessage)
}

// Result is the read-only per-player snapshot handed to the score
// subsystem when a race finishes.
type Result struct {
    ConnID     string
    Name       string
    Percent    int
    Wpm        float64
    BestWpm    float64
    DurationMs int64
}

// ScoreRecorder receives the final snapshot of a finished race. Called
// while the room lock is held; implementations must hand off to their own
// goroutine before doing IO.
type ScoreRecorder interface {
    RecordFinish(roomID string, startedAt time.Time, results []Result)
}
