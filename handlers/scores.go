package handlers

import (
    "context"
    "log"
    "time"

    "github.com/google/uuid"
    "github.com/lib/pq"
    "go.mongodb.org/mongo-driver/bson/primitive"

    "github.com/typerush/typerush/typerush-backend/models"
    "github.com/typerush/typerush/typerush-backend/race"
    "github.com/typerush/typerush/typerush-backend/repository"
)

// ScoreStore persists finished races: the full per-player snapshot goes to
// MongoDB, a summary row to PostgreSQL. It implements race.ScoreRecorder.
// Results arrive keyed by connection id; the hub resolves each to a user
// account where one was attached, so guests are stored under their
// connection id.
type ScoreStore struct {
    hub *Hub
}

func NewScoreStore(hub *Hub) *ScoreStore {
    return &ScoreStore{hub: hub}
}

// RecordFinish is called by the room actor while holding the room lock, so
// all IO happens on a separate goroutine.
func (s *ScoreStore) RecordFinish(roomID string, startedAt time.Time, results []race.Result) {
    session := models.RaceSession{
        RaceID:    uuid.New().String(),
        RoomID:    roomID,
        StartedAt: startedAt.UnixMilli(),
        Results:   make([]models.PlayerResult, 0, len(results)),
    }
    for _, res := range results {
        playerID := res.ConnID
        if userID := s.hub.userFor(res.ConnID); userID != "" {
            playerID = userID
        }
        session.Results = append(session.Results, models.PlayerResult{
            PlayerID:   playerID,
            Name:       res.Name,
            Percent:    res.Percent,
            Wpm:        res.Wpm,
            BestWpm:    res.BestWpm,
            DurationMs: res.DurationMs,
        })
    }

    go s.save(session, startedAt)
}

func (s *ScoreStore) save(session models.RaceSession, startedAt time.Time) {
    realRaceID := saveRaceSessionToMongoDB(session)
    if realRaceID == "" {
        realRaceID = session.RaceID
    }
    saveRaceRecordToPostgres(realRaceID, session, startedAt)
}

func saveRaceSessionToMongoDB(session models.RaceSession) string {
    if repository.MongoDBClient == nil {
        log.Println("MongoDB not connected, skipping race session save")
        return ""
    }

    collection := repository.MongoDBClient.Database("typerush").Collection("race_sessions")
    result, err := collection.InsertOne(context.Background(), session)
    if err != nil {
        log.Printf("Failed to insert race session into MongoDB: %v", err)
        return ""
    }

    realRaceID := result.InsertedID.(primitive.ObjectID).Hex()
    log.Printf("Race session saved to MongoDB with ID %s", realRaceID)
    return realRaceID
}

func saveRaceRecordToPostgres(raceID string, session models.RaceSession, startedAt time.Time) {
    db := repository.PostgreSQLDB
    if db == nil {
        log.Println("PostgreSQL not connected, skipping race record save")
        return
    }

    var userIDs []string
    var finishedMs int64
    for _, res := range session.Results {
        userIDs = append(userIDs, res.PlayerID)
        if res.DurationMs > finishedMs {
            finishedMs = res.DurationMs
        }
    }

    startTime := startedAt.UTC().Format(time.RFC3339)
    finishTime := startedAt.Add(time.Duration(finishedMs) * time.Millisecond).UTC().Format(time.RFC3339)

    _, err := db.Exec("INSERT INTO races (id, room_id, started_at, finished_at, user_ids) VALUES ($1, $2, $3, $4, $5)",
        raceID, session.RoomID, startTime, finishTime, pq.Array(userIDs))
    if err != nil {
        log.Printf("Failed to insert race record into PostgreSQL: %v", err)
        return
    }

    log.Printf("Race record saved to PostgreSQL with ID %s", raceID)
}
