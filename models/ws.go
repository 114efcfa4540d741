package models

// WsMessage is the envelope for every event sent to a client.
type WsMessage struct {
    Type string      `json:"type"`
    Data interface{} `json:"data"`
}

// ClientMessage is the envelope for every event received from a client.
// Fields not used by a given event are left at their zero value.
type ClientMessage struct {
    Event   string  `json:"event"`
    RoomID  string  `json:"roomId,omitempty"`
    Text    string  `json:"text,omitempty"`
    Percent int     `json:"percent,omitempty"`
    Wpm     float64 `json:"wpm,omitempty"`
}

type RoomJoined struct {
    RoomID         string `json:"roomId"`
    IsSinglePlayer bool   `json:"isSinglePlayer"`
}

type RoomState struct {
    Status      string `json:"status"`
    Text        string `json:"text,omitempty"`
    PlayerCount int    `json:"playerCount"`
}

// RacerUpdate is one entry of the race_update roster snapshot.
type RacerUpdate struct {
    ID      string  `json:"id"`
    Name    string  `json:"name"`
    Percent int     `json:"percent"`
    Wpm     float64 `json:"wpm"`
}
