package models

import "time"

// RaceRecord is the summary row stored in PostgreSQL for a finished race.
type RaceRecord struct {
    ID         string    `json:"id"`
    RoomID     string    `json:"room_id"`
    StartedAt  time.Time `json:"started_at"`
    FinishedAt time.Time `json:"finished_at"`
    UserIDs    []string  `json:"user_ids"`
}

// PlayerResult is one player's final state, stored as part of the
// race document in MongoDB.
type PlayerResult struct {
    PlayerID   string  `bson:"playerId" json:"playerId"`
    Name       string  `bson:"name" json:"name"`
    Percent    int     `bson:"percent" json:"percent"`
    Wpm        float64 `bson:"wpm" json:"wpm"`
    BestWpm    float64 `bson:"bestWpm" json:"bestWpm"`
    DurationMs int64   `bson:"durationMs" json:"durationMs"`
}

// RaceSession represents everything persisted about a single finished race.
type RaceSession struct {
    RaceID    string         `bson:"raceId" json:"raceId"`
    RoomID    string         `bson:"roomId" json:"roomId"`
    StartedAt int64          `bson:"startedAt" json:"startedAt"`
    Results   []PlayerResult `bson:"results" json:"results"`
}
